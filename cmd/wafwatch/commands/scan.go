package commands

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"github.com/wafwatch/wafwatch/pkg/scan"
	"go.uber.org/zap"
)

// ScanCommand configuration object
type ScanCommand struct {
	rootConfig *RootConfig
	out        io.Writer

	logLevel        string
	rulesFile       string
	athenaTable     string
	resultsLocation string
	workgroup       string
	auditRoleARN    string
}

// NewScanCommand creates a new ffcli.Command
func NewScanCommand(rootConfig *RootConfig, out io.Writer) *ffcli.Command {
	c := ScanCommand{
		rootConfig: rootConfig,
		out:        out,
	}

	fs := flag.NewFlagSet("wafwatch scan", flag.ExitOnError)

	fs.StringVar(&c.logLevel, "log-level", "info", "the log level (must match go.uber.org/zap log levels)")
	fs.StringVar(&c.rulesFile, "rules-file", "rules.yml", "path to the YAML match rules file")
	fs.StringVar(&c.athenaTable, "athena-table", "", "the Athena table over the CloudTrail archive")
	fs.StringVar(&c.resultsLocation, "results-location", "", "the S3 path to store Athena query results in")
	fs.StringVar(&c.workgroup, "workgroup", "primary", "the Athena workgroup to run the query in")
	fs.StringVar(&c.auditRoleARN, "audit-role-arn", "", "a role to assume before querying (for central log-archive accounts)")

	rootConfig.RegisterFlags(fs)

	return &ffcli.Command{
		Name:       "scan",
		ShortUsage: "wafwatch scan [flags]",
		ShortHelp:  "Query archived CloudTrail logs for past WAF changes",
		FlagSet:    fs,
		Exec:       c.Exec,
	}
}

// Exec function for this command.
func (c *ScanCommand) Exec(ctx context.Context, args []string) error {
	cfg := zap.NewDevelopmentConfig()
	err := cfg.Level.UnmarshalText([]byte(c.logLevel))
	if err != nil {
		return err
	}
	logProd, err := cfg.Build()
	if err != nil {
		return err
	}
	log := logProd.Sugar()

	if c.athenaTable == "" {
		return errors.New("the -athena-table argument must be provided")
	}
	if c.resultsLocation == "" {
		return errors.New("the -results-location argument must be provided")
	}

	rr, err := rules.LoadFile(c.rulesFile)
	if err != nil {
		return err
	}
	matcher, err := rules.NewMatcher(rr)
	if err != nil {
		return err
	}

	s := scan.NewScanner(&scan.ScannerParams{
		Log:            log,
		Matcher:        matcher,
		Table:          c.athenaTable,
		OutputLocation: c.resultsLocation,
		Workgroup:      c.workgroup,
		AuditRoleARN:   c.auditRoleARN,
	})

	events, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	scan.WriteReport(c.out, events)
	return nil
}
