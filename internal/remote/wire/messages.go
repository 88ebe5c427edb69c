// Package wire is the gRPC contract between the self-hosted backend and
// remote/grpcclient. The service is declared by hand: every request and
// response is a google.protobuf.Struct carrying one of the JSON shaped
// messages below, so the schema-less records pass through untouched.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/models"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthRequest is the payload of every auth method.
type AuthRequest struct {
	Email        string         `json:"email,omitempty"`
	Password     string         `json:"password,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
}

// AuthResponse answers SignUp, SignIn, RefreshToken and GetUser.
type AuthResponse struct {
	User    *models.User    `json:"user,omitempty"`
	Session *models.Session `json:"session,omitempty"`
}

// TableRequest addresses one collection.
type TableRequest struct {
	Collection string        `json:"collection"`
	ID         string        `json:"id,omitempty"`
	Fields     models.Record `json:"fields,omitempty"`
	Query      *models.Query `json:"query,omitempty"`
}

type TableResponse struct {
	Record  models.Record   `json:"record,omitempty"`
	Records []models.Record `json:"records,omitempty"`
}

// StorageRequest addresses one bucket. Data travels base64 encoded.
type StorageRequest struct {
	Bucket       string   `json:"bucket"`
	Path         string   `json:"path,omitempty"`
	Paths        []string `json:"paths,omitempty"`
	Folder       string   `json:"folder,omitempty"`
	Data         []byte   `json:"data,omitempty"`
	Upsert       bool     `json:"upsert,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	CacheControl string   `json:"cache_control,omitempty"`
}

type StorageResponse struct {
	Result *models.UploadResult `json:"result,omitempty"`
	Files  []models.FileObject  `json:"files,omitempty"`
}

type SubscribeRequest struct {
	Channel    string           `json:"channel"`
	Collection string           `json:"collection"`
	Event      models.EventType `json:"event"`
}

// SubscribeAck is the first message of every change stream. It confirms
// the channel is open before any event is sent.
type SubscribeAck struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

// StatusSubscribed is the Status of a SubscribeAck.
const StatusSubscribed = "SUBSCRIBED"

// Empty is the payload of methods without arguments or results.
type Empty struct{}

// Encode turns v into a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from s. A nil s leaves v untouched.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
