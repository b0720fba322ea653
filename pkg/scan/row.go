package scan

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

// column positions in the scan query
const (
	colEventID = iota
	colEventTime
	colEventSource
	colEventName
	colAWSRegion
	colSourceIPAddress
	colUserAgent
	colIdentityType
	colPrincipalID
	colUserName
	colSessionIssuerUserName
	colRequestParameters
	colRecipientAccountID
	columnCount
)

// eventFromRow rebuilds an audit event from an Athena result row.
func eventFromRow(r types.Row) (audit.Event, error) {
	if len(r.Data) < columnCount {
		return audit.Event{}, errors.Errorf("expected %d columns in result row, got %d", columnCount, len(r.Data))
	}

	col := func(i int) string {
		return aws.ToString(r.Data[i].VarCharValue)
	}

	e := audit.Event{
		EventID:            col(colEventID),
		EventTime:          col(colEventTime),
		EventSource:        col(colEventSource),
		EventName:          col(colEventName),
		AWSRegion:          col(colAWSRegion),
		SourceIPAddress:    col(colSourceIPAddress),
		UserAgent:          col(colUserAgent),
		RecipientAccountID: col(colRecipientAccountID),
		UserIdentity: audit.UserIdentity{
			Type:        col(colIdentityType),
			PrincipalID: col(colPrincipalID),
			UserName:    col(colUserName),
		},
	}

	if issuer := col(colSessionIssuerUserName); issuer != "" {
		e.UserIdentity.SessionContext = &audit.SessionContext{
			SessionIssuer: audit.SessionIssuer{UserName: issuer},
		}
	}

	// requestparameters is stored as a JSON string in CloudTrail's
	// Athena schema
	if params := col(colRequestParameters); params != "" {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(params), &decoded); err != nil {
			return audit.Event{}, errors.Wrap(err, "decoding requestParameters")
		}
		e.RequestParameters = decoded
	}

	return e, nil
}
