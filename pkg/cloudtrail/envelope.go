// Package cloudtrail decodes the transport envelopes that CloudTrail
// records arrive in: raw records, CloudTrail log-file deliveries,
// EventBridge envelopes, and gzipped CloudWatch Logs subscription
// payloads.
package cloudtrail

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

// ErrUnrecognizedPayload is returned when a message body does not
// look like any of the supported CloudTrail delivery formats.
var ErrUnrecognizedPayload = errors.New("payload is not a recognized CloudTrail delivery format")

// controlMessage is emitted by CloudWatch Logs when a subscription
// is first established. It carries no log data.
const controlMessage = "CONTROL_MESSAGE"

type envelope struct {
	// CloudWatch Logs subscription payload
	AWSLogs *awsLogsPayload `json:"awslogs"`

	// EventBridge envelope
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`

	// CloudTrail log-file delivery
	Records []audit.Event `json:"Records"`

	// raw CloudTrail record
	EventSource string `json:"eventSource"`
}

type awsLogsPayload struct {
	Data string `json:"data"`
}

type logsData struct {
	MessageType string     `json:"messageType"`
	LogGroup    string     `json:"logGroup"`
	LogStream   string     `json:"logStream"`
	LogEvents   []logEvent `json:"logEvents"`
}

type logEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// ParseMessage extracts CloudTrail records from a message body,
// auto-detecting the delivery format. A CloudWatch Logs control
// message yields no records and no error. Log lines inside a
// subscription payload that are not CloudTrail records are skipped:
// one unparseable line must not block the rest of the batch.
func ParseMessage(body []byte) ([]audit.Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(ErrUnrecognizedPayload, err.Error())
	}

	switch {
	case env.AWSLogs != nil:
		return parseLogsPayload(env.AWSLogs.Data)

	case len(env.Records) > 0:
		return env.Records, nil

	case env.DetailType != "" && len(env.Detail) > 0:
		var e audit.Event
		if err := json.Unmarshal(env.Detail, &e); err != nil {
			return nil, errors.Wrap(err, "parsing EventBridge detail")
		}
		return []audit.Event{e}, nil

	case env.EventSource != "":
		var e audit.Event
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, errors.Wrap(err, "parsing CloudTrail record")
		}
		return []audit.Event{e}, nil
	}

	return nil, ErrUnrecognizedPayload
}

// parseLogsPayload decodes the base64 gzipped "awslogs" data block
// of a CloudWatch Logs subscription delivery.
func parseLogsPayload(data string) ([]audit.Event, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding awslogs data")
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "decompressing awslogs data")
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "reading awslogs data")
	}

	var payload logsData
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "parsing awslogs payload")
	}

	if payload.MessageType == controlMessage {
		return nil, nil
	}

	events := []audit.Event{}
	for _, le := range payload.LogEvents {
		var e audit.Event
		if err := json.Unmarshal([]byte(le.Message), &e); err != nil {
			continue
		}
		if e.EventSource == "" {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
