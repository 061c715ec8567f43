package protocol

// 클라이언트 → 서버 이벤트
const (
	EventAddShape           = "add shape"
	EventRemoveShape        = "remove shape"
	EventMoveShapeOrder     = "moveShapeOrder"
	EventShapeMove          = "shapeMove"
	EventUpdateShape        = "updateShape"
	EventUpdateInitiative   = "updateInitiative"
	EventSetClientOptions   = "set clientOptions"
	EventSetLocationOptions = "set locationOptions"
	EventSetGridSize        = "set gridsize"
	EventNewLocation        = "new location"
	EventChangeLocation     = "change location"
	EventBringPlayers       = "bringPlayers"
	EventShowAsset          = "showAssetToPlayers"
	EventOwnerAdd           = "Shape.Owner.Add"
	EventOwnerUpdate        = "Shape.Owner.Update"
	EventOwnerDelete        = "Shape.Owner.Delete"
	EventOwnerDefault       = "Shape.Owner.Default.Update"
)

// 서버 → 클라이언트 전용 이벤트
const (
	EventSetUsername      = "set username"
	EventSetRoomInfo      = "set room info"
	EventBoardInit        = "board init"
	EventSetLocation      = "set location"
	EventAssetList        = "asset list"
	EventSetInitiative    = "setInitiative"
	EventClearTemporaries = "clear temporaries"
	EventRedirect         = "redirect"
	EventShapeSet         = "Shape.Set"
)
