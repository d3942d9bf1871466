package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/policy-intake/internal/common"
)

// toStruct renders v through its JSON form so the wire shape matches the snapshot shape.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func str(in *structpb.Struct, key string) string {
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	switch x := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(x.StringValue)
	case *structpb.Value_NumberValue:
		return fmt.Sprint(x.NumberValue)
	case *structpb.Value_BoolValue:
		return fmt.Sprint(x.BoolValue)
	}
	return ""
}

func intOr(in *structpb.Struct, key string, def int) int {
	if v, ok := in.GetFields()[key]; ok {
		if n, ok := v.GetKind().(*structpb.Value_NumberValue); ok && n.NumberValue > 0 {
			return int(n.NumberValue)
		}
	}
	return def
}

func sessionID(in *structpb.Struct) (uuid.UUID, error) {
	raw := str(in, "sessionId")
	v := common.NewValidator().Field("sessionId", raw, common.Required, common.UUID)
	if err := v.Error(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

func bytesField(in *structpb.Struct, key string) ([]byte, error) {
	raw := str(in, key)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is required", common.ErrInvalidInput, key)
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be base64", common.ErrInvalidInput, key)
	}
	return b, nil
}

func dateField(in *structpb.Struct, key string) (time.Time, error) {
	raw := str(in, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", common.ErrInvalidInput, key)
	}
	return t, nil
}
