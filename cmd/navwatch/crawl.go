package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"navwatch/internal/application/usecase/dailycrawl"
	"navwatch/internal/domain/model"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [codes...]",
	Short: "Crawl the roster (or the given funds) once and merge the results",
	RunE:  runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	raw, err := a.roster(ctx, args)
	if err != nil {
		return err
	}
	codes := make([]model.FundCode, 0, len(raw))
	for _, r := range raw {
		code, err := model.ParseFundCode(r)
		if err != nil {
			return fmt.Errorf("%q: %w", r, err)
		}
		codes = append(codes, code)
	}

	report := a.svc.CrawlService().CrawlAll(ctx, codes)

	f := dailycrawl.NewFormatter(cfg.App.LogFormat != "json")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, r := range report.Results {
		fmt.Fprintln(out, f.RenderResult(r))
	}
	fmt.Fprintln(out, f.RenderSummary(report))

	if report.Succeeded == 0 && report.Failed > 0 {
		return fmt.Errorf("all %d funds failed", report.Failed)
	}
	return nil
}
