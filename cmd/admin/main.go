package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"tabletop-backend/internal/auth"
	"tabletop-backend/internal/config"
	"tabletop-backend/internal/database"
	"tabletop-backend/internal/model"
	"tabletop-backend/internal/presence"
	"tabletop-backend/internal/scene"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "tabletop-admin",
		Usage: "Operator tools for the tabletop server save",
		Commands: []*cli.Command{
			checkSaveCommand(),
			createUserCommand(),
			roomsCommand(),
			onlineCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(database.ExitCode(err))
	}
}

// openSave DB 연결 (migrate 가 true 면 버전 확인 후 스키마 준비)
func openSave(migrate bool) (*gorm.DB, error) {
	db, err := database.ConnectDB(config.LoadDatabase())
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Prepare(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
	}
	return db, nil
}

func checkSaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-save",
		Usage: "Report the save format version without modifying anything",
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openSave(false)
			if err != nil {
				return err
			}
			defer database.Close(db)

			fresh, err := database.CheckVersion(db)
			if err != nil {
				return err
			}
			if fresh {
				fmt.Printf("empty save (will be created with version %d)\n", database.SaveVersion)
				return nil
			}
			rooms, err := database.NewStore(db).CountRooms(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("save version %d OK (%d rooms)\n", database.SaveVersion, rooms)
			return nil
		},
	}
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "Create a password account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "username"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "initial password"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.String("name")
			if err := auth.ValidateUsername(name); err != nil {
				return err
			}
			hash, err := auth.HashPassword(c.String("password"))
			if err != nil {
				return err
			}

			db, err := openSave(true)
			if err != nil {
				return err
			}
			defer database.Close(db)

			user := model.User{Name: name, PasswordHash: hash, Provider: model.ProviderLocal}
			if err := database.NewStore(db).CreateUser(ctx, &user); err != nil {
				return err
			}
			fmt.Printf("created user %s\n", name)
			return nil
		},
	}
}

type roomRow struct {
	Room       string         `json:"room"`
	Players    []string       `json:"players"`
	DM         string         `json:"dmLocation"`
	PlayerLoc  string         `json:"playerLocation"`
	Shapes     map[string]int `json:"shapes"`
	Initiative map[string]int `json:"initiative"`
}

func summarize(r *scene.Room) roomRow {
	row := roomRow{
		Room:       r.Key().String(),
		Players:    r.Players,
		DM:         r.DMLocation,
		PlayerLoc:  r.PlayerLocation,
		Shapes:     map[string]int{},
		Initiative: map[string]int{},
	}
	if row.Players == nil {
		row.Players = []string{}
	}
	for _, loc := range r.Locations() {
		n := 0
		for _, layer := range loc.Layers() {
			n += layer.Len()
		}
		row.Shapes[loc.Name] = n
		row.Initiative[loc.Name] = len(loc.Initiative.Entries())
	}
	return row
}

func roomsCommand() *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "List saved rooms",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openSave(true)
			if err != nil {
				return err
			}
			defer database.Close(db)

			rooms, err := database.NewStore(db).LoadRooms(ctx)
			if err != nil {
				return err
			}
			rows := make([]roomRow, 0, len(rooms))
			for _, r := range rooms {
				rows = append(rows, summarize(r))
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, row := range rows {
				fmt.Printf("%s  players=%v  dm@%s  players@%s\n", row.Room, row.Players, row.DM, row.PlayerLoc)
				names := make([]string, 0, len(row.Shapes))
				for name := range row.Shapes {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Printf("  - %s: %d shapes, %d initiative entries\n", name, row.Shapes[name], row.Initiative[name])
				}
			}
			return nil
		},
	}
}

func onlineCommand() *cli.Command {
	return &cli.Command{
		Name:  "online",
		Usage: "Show who is connected, from Redis presence",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "room", Usage: "creator/name (all rooms when empty)"},
			&cli.BoolFlag{Name: "follow", Usage: "keep printing joins and leaves until interrupted"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.LoadRedis()
			if cfg.Addr == "" {
				return errors.New("REDIS_ADDR is not set")
			}
			m := presence.NewManager(cfg.Addr, cfg.Password, cfg.DB)
			defer m.Close()

			rooms := []string{c.String("room")}
			if rooms[0] == "" {
				var err error
				if rooms, err = m.Rooms(ctx); err != nil {
					return err
				}
			}
			for _, room := range rooms {
				users, err := m.Online(ctx, room)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %v\n", room, users)
			}
			if !c.Bool("follow") {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return m.Watch(ctx, c.String("room"), func(d presence.PresenceData) {
				fmt.Printf("%s %s %s %s\n", time.Unix(d.Timestamp, 0).Format(time.RFC3339), d.Room, d.User, d.Status)
			})
		},
	}
}
