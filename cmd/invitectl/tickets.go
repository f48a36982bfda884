package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ms-invites/internal/models"
	"ms-invites/internal/tickets/db"
	qr "ms-invites/internal/tickets/qr_generator"
	tickets "ms-invites/internal/tickets/service"
	"ms-invites/internal/tickets/token"
)

var (
	issueName     string
	issueQuantity int
	issueOutDir   string
	purgeConfirm  bool
)

var issueCmd = &cobra.Command{
	Use:     "issue",
	Short:   "Issue a batch of tickets and write their QR codes as PNG files",
	Example: `  invitectl issue --name "Joao" --quantity 3 --out ./convites`,
	Args:    cobra.NoArgs,
	RunE:    runIssue,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print how many tickets were issued and redeemed",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every ticket",
	Args:  cobra.NoArgs,
	RunE:  runPurge,
}

func init() {
	issueCmd.Flags().StringVar(&issueName, "name", "", "Base name printed on the tickets (required)")
	issueCmd.Flags().IntVar(&issueQuantity, "quantity", 1, "Number of tickets to issue")
	issueCmd.Flags().StringVar(&issueOutDir, "out", ".", "Directory the PNG files are written to")
	issueCmd.MarkFlagRequired("name")

	purgeCmd.Flags().BoolVar(&purgeConfirm, "yes", false, "Confirm deleting every ticket")

	rootCmd.AddCommand(issueCmd, statsCmd, purgeCmd)
}

// newService wires the issuance service. checkEncoder renders a sample code
// first so a bad emblem setup fails before anything is persisted.
func newService(cmd *cobra.Command, checkEncoder bool) (*tickets.TicketService, func(), error) {
	log := newLogger()
	bunDB, cfg, err := connect(cmd.Context(), log)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewDB(bunDB)
	if err := store.InitializeSchema(cmd.Context()); err != nil {
		bunDB.Close()
		return nil, nil, err
	}

	encoder := qr.NewTicketEncoder(
		qr.NewQRGenerator(qr.Options{Version: cfg.QR.Version, ModulePx: cfg.QR.ModulePx}),
		cfg.QR.EmblemPath,
		cfg.QR.EmblemSizePx,
	)
	tokens := token.NewGenerator()
	if checkEncoder {
		sample, err := tokens.Generate()
		if err == nil {
			err = encoder.Preflight(sample)
		}
		if err != nil {
			bunDB.Close()
			return nil, nil, err
		}
	}

	svc := tickets.NewTicketService(store, tokens, encoder, nil, log)
	return svc, func() { bunDB.Close() }, nil
}

func runIssue(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(issueOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	svc, closeDB, err := newService(cmd, true)
	if err != nil {
		return err
	}
	defer closeDB()

	issued, err := svc.IssueBatch(cmd.Context(), issueName, issueQuantity)
	var batchErr *tickets.BatchIssuanceFailed
	if errors.As(err, &batchErr) {
		// keep what was persisted before the failure
		if werr := writeTickets(cmd, batchErr.Issued); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	return writeTickets(cmd, issued)
}

func writeTickets(cmd *cobra.Command, issued []models.IssuedTicket) error {
	for _, t := range issued {
		path := filepath.Join(issueOutDir, fmt.Sprintf("convite_%d.png", t.TicketID))
		if err := os.WriteFile(path, t.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		cmd.Printf("%s\t%s\t%s\n", t.DisplayName, t.Token, path)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, closeDB, err := newService(cmd, false)
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := svc.GetStats(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("issued:   %d\nredeemed: %d\n", stats.TotalIssued, stats.TotalRedeemed)
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	if !purgeConfirm {
		return errors.New("refusing to delete every ticket without --yes")
	}
	svc, closeDB, err := newService(cmd, false)
	if err != nil {
		return err
	}
	defer closeDB()

	deleted, err := svc.DeleteAllTickets(cmd.Context())
	if err != nil {
		return err
	}
	if deleted == db.DeletedUnknown {
		cmd.Println("deleted every ticket")
		return nil
	}
	cmd.Printf("deleted %d tickets\n", deleted)
	return nil
}
