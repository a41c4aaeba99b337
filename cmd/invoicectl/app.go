package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"invoicer/internal/auth"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/layout"
	"invoicer/internal/log"
	"invoicer/internal/submission"
)

var errMissingDraft = errors.New("a draft file (YAML or JSON) is required")

func currencyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "currency",
		Usage:   "currency symbol printed before amounts",
		Value:   "$",
		EnvVars: []string{"CURRENCY_SYMBOL"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "invoicectl",
		Usage: "compose and render invoices from draft files",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "log to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "render a draft to a PDF (or plain text) document",
				ArgsUsage: "<draft>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "output directory"},
					&cli.BoolFlag{Name: "text", Usage: "render plain text instead of PDF"},
					&cli.StringFlag{Name: "paper", Value: "A4", EnvVars: []string{"PAPER_SIZE"}, Usage: "A4 or Letter"},
					&cli.StringFlag{Name: "profile", EnvVars: []string{"INVOICE_PROFILE"}, Usage: "YAML or JSON company profile printed as the issuer"},
					currencyFlag(),
				},
				Action: render,
			},
			{
				Name:      "validate",
				Usage:     "check that a draft has everything needed for export",
				ArgsUsage: "<draft>",
				Action:    validate,
			},
			{
				Name:      "total",
				Usage:     "print line amounts and the document total",
				ArgsUsage: "<draft>",
				Flags:     []cli.Flag{currencyFlag()},
				Action:    total,
			},
			{
				Name:  "token",
				Usage: "issue an API bearer token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "owner the token acts for"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Usage: "HS256 signing secret"},
				},
				Action: token,
			},
		},
	}
}

func logger(c *cli.Context) *log.Logger {
	if !c.Bool("verbose") {
		return log.Discard()
	}
	return log.New(log.Config{Level: slog.LevelDebug, Output: os.Stderr, Component: log.ComponentInvoice})
}

func loadInvoice(c *cli.Context) (*invoice.Invoice, error) {
	path := c.Args().First()
	if path == "" {
		return nil, errMissingDraft
	}
	d, err := invoice.LoadDraft(path)
	if err != nil {
		return nil, err
	}
	inv, err := d.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inv, nil
}

func render(c *cli.Context) error {
	inv, err := loadInvoice(c)
	if err != nil {
		return err
	}
	paper, err := layout.ParsePaperSize(c.String("paper"))
	if err != nil {
		return err
	}

	opts := submission.Options{Currency: c.String("currency"), Paper: paper}
	if path := c.String("profile"); path != "" {
		p, err := loadProfile(path)
		if err != nil {
			return err
		}
		// An explicit --currency wins over the profile's.
		if c.IsSet("currency") {
			p.Currency = ""
		}
		opts.Profiles = staticProfile(p)
	}
	if c.Bool("text") {
		opts.Render = func(in layout.Input) ([]byte, error) {
			return []byte(layout.RenderText(layout.Compose(in, layout.TextMetrics{}))), nil
		}
		opts.ContentType = "text/plain; charset=utf-8"
		opts.Extension = "txt"
	}

	art, err := submission.NewController(opts, nil, nil, logger(c)).Export(c.Context, "", inv.Snapshot())
	if err != nil {
		return err
	}

	dir := c.String("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, art.Name)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func validate(c *cli.Context) error {
	inv, err := loadInvoice(c)
	if err != nil {
		return err
	}
	if err := inv.Header().Validate(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "ok")
	return nil
}

func total(c *cli.Context) error {
	inv, err := loadInvoice(c)
	if err != nil {
		return err
	}
	symbol := c.String("currency")
	for i, it := range inv.Items() {
		desc := it.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(c.App.Writer, "%3d. %-40s %s x %s = %s\n", i+1, desc,
			it.Quantity.String(), core.FormatCurrency(symbol, it.Rate), core.FormatCurrency(symbol, it.Amount))
	}
	fmt.Fprintf(c.App.Writer, "Total: %s\n", core.FormatCurrency(symbol, inv.Total()))
	return nil
}

func token(c *cli.Context) error {
	secret := c.String("secret")
	if len(secret) < 16 {
		return errors.New("secret must be at least 16 characters (set --secret or JWT_SECRET)")
	}
	tok, err := auth.NewToken([]byte(secret), c.String("subject"), c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}
