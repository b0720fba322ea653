// Package scan queries CloudTrail archives through Athena to find
// historical changes to the monitored Web ACLs, replaying them
// through the match rules.
package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/audit"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"go.uber.org/zap"
)

// Scanner queries CloudTrail logs via Athena for past changes to
// the monitored Web ACLs.
type Scanner struct {
	log     *zap.SugaredLogger
	matcher *rules.Matcher

	table          string
	outputLocation string
	workgroup      string

	// AuditRoleARN, when set, is assumed before querying. This lets
	// a scan run against a central log-archive account.
	auditRoleARN string
}

type ScannerParams struct {
	Log     *zap.SugaredLogger
	Matcher *rules.Matcher

	// Table is the Athena table over the CloudTrail archive.
	Table string
	// OutputLocation is the S3 location Athena writes results to.
	OutputLocation string
	// Workgroup is the Athena workgroup to run in.
	Workgroup string
	// AuditRoleARN is an optional role to assume before querying.
	AuditRoleARN string
}

func NewScanner(params *ScannerParams) *Scanner {
	workgroup := params.Workgroup
	if workgroup == "" {
		workgroup = "primary"
	}
	return &Scanner{
		log:            params.Log,
		matcher:        params.Matcher,
		table:          params.Table,
		outputLocation: params.OutputLocation,
		workgroup:      workgroup,
		auditRoleARN:   params.AuditRoleARN,
	}
}

// Scan runs the Athena query and returns every archived event that
// satisfies a match rule.
func (s *Scanner) Scan(ctx context.Context) ([]audit.Event, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	if s.auditRoleARN != "" {
		creds := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), s.auditRoleARN)
		cfg.Credentials = aws.NewCredentialsCache(creds)
	}

	svc := athena.NewFromConfig(cfg)

	query := s.buildQuery()

	out, err := svc.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: &query,
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: &s.outputLocation,
		},
		WorkGroup: aws.String(s.workgroup),
	})
	if err != nil {
		return nil, errors.Wrap(err, "starting Athena query")
	}

	if err := s.waitForQuery(ctx, svc, *out.QueryExecutionId); err != nil {
		return nil, err
	}

	res, err := svc.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: out.QueryExecutionId,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching Athena results")
	}

	events := []audit.Event{}
	for i, r := range res.ResultSet.Rows {
		// the first row is the column header
		if i == 0 {
			continue
		}
		e, err := eventFromRow(r)
		if err != nil {
			s.log.With(zap.Error(err)).Warn("skipping unreadable result row")
			continue
		}
		if s.matcher.Match(e) {
			events = append(events, e)
		}
	}

	return events, nil
}

// buildQuery selects the CloudTrail columns needed to rebuild an
// audit event, filtered on the rule sources and event names. The
// resource-name filter is applied in Go after the JSON
// requestparameters column is decoded.
func (s *Scanner) buildQuery() string {
	sources := map[string]bool{}
	names := map[string]bool{}
	for _, r := range s.matcher.Rules() {
		sources[r.EventSource] = true
		for _, n := range r.EventNames {
			names[n] = true
		}
	}

	return fmt.Sprintf(`SELECT eventid, eventtime, eventsource, eventname, awsregion, sourceipaddress, useragent, useridentity.type, useridentity.principalid, useridentity.username, useridentity.sessioncontext.sessionissuer.username, requestparameters, recipientaccountid
	FROM %s
	WHERE eventsource IN (%s)
			AND eventname IN (%s)
`, s.table, quoteList(sources), quoteList(names))
}

func quoteList(set map[string]bool) string {
	quoted := []string{}
	for v := range set {
		quoted = append(quoted, "'"+strings.ReplaceAll(v, "'", "''")+"'")
	}
	return strings.Join(quoted, ", ")
}

func (s *Scanner) waitForQuery(ctx context.Context, svc *athena.Client, queryID string) error {
	for {
		s.log.With("query-id", queryID).Info("waiting for Athena query")
		q, err := svc.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return err
		}

		state := q.QueryExecution.Status.State
		if state == types.QueryExecutionStateRunning || state == types.QueryExecutionStateQueued {
			// wait a second before trying again
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		} else if state == types.QueryExecutionStateSucceeded {
			return nil
		} else {
			reason := aws.ToString(q.QueryExecution.Status.StateChangeReason)
			return errors.Errorf("error while querying athena: %s", reason)
		}
	}
}
