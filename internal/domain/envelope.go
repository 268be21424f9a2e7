package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Interoperability headers carried on envelopes.
const (
	HeaderContentType   = "content-type"
	HeaderAccept        = "accept"
	HeaderSource        = "fspiop-source"
	HeaderDestination   = "fspiop-destination"
	HeaderContentLength = "content-length"

	TransfersContentType = "application/vnd.interoperability.transfers+json;version=1.0"
)

// Event types and statuses used on outbound envelopes.
const (
	EventTypePosition     = "position"
	EventTypeNotification = "notification"
	EventTypeTransfer     = "transfer"

	EventStatusSuccess = "success"
	EventStatusFailure = "failed"
)

// Envelope is the streaming message carried in every record value.
type Envelope struct {
	ID       string   `json:"id"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Type     string   `json:"type"`
	Content  Content  `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Content holds the request headers and domain payload.
type Content struct {
	URIParams map[string]string `json:"uriParams,omitempty"`
	Headers   map[string]string `json:"headers"`
	Payload   json.RawMessage   `json:"payload"`
	Context   map[string]any    `json:"context,omitempty"`
}

type Metadata struct {
	CorrelationID string         `json:"correlationId,omitempty"`
	Event         EventMetadata  `json:"event"`
	Trace         map[string]any `json:"trace,omitempty"`
}

type EventMetadata struct {
	ID         string     `json:"id"`
	ResponseTo string     `json:"responseTo,omitempty"`
	Type       string     `json:"type"`
	Action     Action     `json:"action"`
	CreatedAt  time.Time  `json:"createdAt"`
	State      EventState `json:"state"`
}

type EventState struct {
	Status      string `json:"status"`
	Code        int    `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Money is an amount with its currency.
type Money struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// PreparePayload is the body of a transfer prepare request.
type PreparePayload struct {
	TransferID string    `json:"transferId"`
	PayerFsp   string    `json:"payerFsp"`
	PayeeFsp   string    `json:"payeeFsp"`
	Amount     Money     `json:"amount"`
	ILPPacket  string    `json:"ilpPacket,omitempty"`
	Condition  string    `json:"condition,omitempty"`
	Expiration time.Time `json:"expiration"`
}

// Validate checks the fields the position pipeline depends on.
func (p *PreparePayload) Validate() error {
	if err := ValidateTransferID(p.TransferID); err != nil {
		return err
	}

	if err := ValidateAmount(p.Amount.Amount); err != nil {
		return err
	}

	if err := ValidateCurrency(p.Amount.Currency); err != nil {
		return err
	}

	return ValidateParticipants(p.PayerFsp, p.PayeeFsp)
}

// DecodeEnvelope parses a record value.
func DecodeEnvelope(value []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Encode serializes the envelope.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// PayloadBytes returns the JSON payload, unwrapping base64 data URIs.
func (e *Envelope) PayloadBytes() ([]byte, error) {
	raw := bytes.TrimSpace(e.Content.Payload)
	if len(raw) == 0 || raw[0] != '"' {
		return raw, nil
	}

	var uri string
	if err := json.Unmarshal(raw, &uri); err != nil {
		return nil, fmt.Errorf("decode payload string: %w", err)
	}

	return decodeDataURI(uri)
}

// DecodePrepare extracts the prepare payload. Only the transfer id is checked
// here, since a request without a usable id cannot be answered; the remaining
// fields are checked by Validate.
func (e *Envelope) DecodePrepare() (*PreparePayload, error) {
	raw, err := e.PayloadBytes()
	if err != nil {
		return nil, err
	}

	var p PreparePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode prepare payload: %w", err)
	}

	if err := ValidateTransferID(p.TransferID); err != nil {
		return nil, err
	}

	return &p, nil
}

// decodeDataURI handles data:<mime>[;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, ErrUnsupportedPayloadEncoding
	}

	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, ErrUnsupportedPayloadEncoding
	}

	if !strings.HasSuffix(meta, ";base64") {
		return []byte(data), nil
	}

	out, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return out, nil
}

// NewPrepareNotification builds the notification sent after a prepare decision.
// Success goes to the payee from the payer with the original payload. Failure
// goes to the payer from the hub with an error body.
func NewPrepareNotification(id, hubName string, in *Envelope, p *PreparePayload, apiErr *APIError, now time.Time) (*Envelope, error) {
	headers := make(map[string]string, len(in.Content.Headers))
	for k, v := range in.Content.Headers {
		if strings.EqualFold(k, HeaderContentLength) {
			continue
		}
		headers[strings.ToLower(k)] = v
	}

	out := &Envelope{
		ID:   p.TransferID,
		Type: "application/json",
		Content: Content{
			Headers: headers,
			Context: in.Content.Context,
		},
		Metadata: Metadata{
			CorrelationID: p.TransferID,
			Event: EventMetadata{
				ID:         id,
				ResponseTo: in.Metadata.Event.ID,
				Type:       EventTypeNotification,
				Action:     ActionPrepare,
				CreatedAt:  now,
				State:      EventState{Status: EventStatusSuccess},
			},
		},
	}

	if apiErr == nil {
		out.From = p.PayerFsp
		out.To = p.PayeeFsp
		payload, err := in.PayloadBytes()
		if err != nil {
			return nil, err
		}
		out.Content.Payload = payload
		return out, nil
	}

	body, err := json.Marshal(NewErrorInformation(*apiErr))
	if err != nil {
		return nil, err
	}

	payer := p.PayerFsp
	if payer == "" {
		payer = in.From
	}

	out.From = hubName
	out.To = payer
	out.Content.URIParams = map[string]string{"id": p.TransferID}
	out.Content.Payload = body
	out.Content.Headers[HeaderSource] = hubName
	out.Content.Headers[HeaderDestination] = payer
	if _, ok := out.Content.Headers[HeaderContentType]; !ok {
		out.Content.Headers[HeaderContentType] = TransfersContentType
	}
	out.Metadata.Event.State = EventState{
		Status:      EventStatusFailure,
		Code:        apiErr.Code,
		Description: apiErr.Description,
	}

	return out, nil
}
