// Package wire implements the coordinator↔worker control-channel protocol:
// a length-prefixed frame carrying a JSON tag-discriminated Command/Response
// envelope.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// ShardMetadata is the registry record for one shard, exchanged both over
// the control channel (inside a SearchRequest) and via the coordinator's
// HTTP registration endpoint.
type ShardMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StorageKey string    `json:"storage_key"`
	Timestamp  time.Time `json:"timestamp"`
}

// LogBody is the payload of a Log command: ingest one record into the
// receiving worker's active shard.
type LogBody struct {
	Log string `json:"log"`
}

// SearchRequestBody is the payload of a SearchRequest command.
type SearchRequestBody struct {
	ID    string        `json:"id"`
	Query string        `json:"query"`
	Shard ShardMetadata `json:"shard"`
}

// SearchResponseBody is the payload of a SearchResponse. Row shape is
// intentionally untyped: the system does not know column types at plan
// time, so each row is a column-name → stringified-value map.
type SearchResponseBody struct {
	ID      string              `json:"id"`
	Payload []map[string]string `json:"payload"`
}

// Envelope is a discriminated union of the three message variants that
// cross the control channel. Exactly one of the pointer fields is set.
type Envelope struct {
	Log            *LogBody
	SearchRequest  *SearchRequestBody
	SearchResponse *SearchResponseBody
}

// NewLog builds an Envelope carrying a Log command.
func NewLog(message string) Envelope {
	return Envelope{Log: &LogBody{Log: message}}
}

// NewSearchRequest builds an Envelope carrying a SearchRequest command.
func NewSearchRequest(id, query string, shard ShardMetadata) Envelope {
	return Envelope{SearchRequest: &SearchRequestBody{ID: id, Query: query, Shard: shard}}
}

// NewSearchResponse builds an Envelope carrying a SearchResponse.
func NewSearchResponse(id string, rows []map[string]string) Envelope {
	if rows == nil {
		rows = []map[string]string{}
	}
	return Envelope{SearchResponse: &SearchResponseBody{ID: id, Payload: rows}}
}

// MarshalJSON renders the envelope as a single-key tagged object, e.g.
// {"Log":{"log":"..."}}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch {
	case e.Log != nil:
		return json.Marshal(map[string]*LogBody{"Log": e.Log})
	case e.SearchRequest != nil:
		return json.Marshal(map[string]*SearchRequestBody{"SearchRequest": e.SearchRequest})
	case e.SearchResponse != nil:
		return json.Marshal(map[string]*SearchResponseBody{"SearchResponse": e.SearchResponse})
	default:
		return nil, fmt.Errorf("wire: empty envelope")
	}
}

// UnmarshalJSON parses a single-key tagged object into the matching
// variant field. An unknown tag or a malformed body is reported as an
// error; callers treat this as a bad frame (§4.1) and drop it without
// tearing down the connection.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("wire: decode envelope: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("wire: envelope must have exactly one tag, got %d", len(raw))
	}

	for tag, body := range raw {
		switch tag {
		case "Log":
			var b LogBody
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("wire: decode Log body: %w", err)
			}
			*e = Envelope{Log: &b}
		case "SearchRequest":
			var b SearchRequestBody
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("wire: decode SearchRequest body: %w", err)
			}
			*e = Envelope{SearchRequest: &b}
		case "SearchResponse":
			var b SearchResponseBody
			if err := json.Unmarshal(body, &b); err != nil {
				return fmt.Errorf("wire: decode SearchResponse body: %w", err)
			}
			*e = Envelope{SearchResponse: &b}
		default:
			return fmt.Errorf("wire: unknown envelope tag %q", tag)
		}
	}
	return nil
}
