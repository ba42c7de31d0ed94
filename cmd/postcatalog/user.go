package main

import (
	"context"
	"fmt"
	"os"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v3"

	"postcatalog/internal/catalog"
	"postcatalog/internal/database"
	"postcatalog/internal/store"
)

var userCommand = &cli.Command{
	Name:  "user",
	Usage: "Manage author accounts",
	Commands: []*cli.Command{
		{
			Name:   "totp",
			Usage:  "Enroll a second factor and print the QR code to scan",
			Action: enrollTOTP,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "email",
					Aliases:  []string{"e"},
					Usage:    "Email of the account",
					Required: true,
				},
			},
		},
	},
}

func enrollTOTP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// Account commands never touch the post cache.
	svc := catalog.NewService(store.New(db), nil, nil)
	key, err := svc.EnrollTOTP(ctx, cmd.String("email"))
	if err != nil {
		return err
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}
	fmt.Fprint(os.Stdout, qr.ToSmallString(false))
	fmt.Fprintf(os.Stdout, "\nSecret: %s\nURL:    %s\n", key.Secret(), key.URL())
	return nil
}
