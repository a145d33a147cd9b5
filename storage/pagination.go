package storage

import (
	"encoding/base64"

	"github.com/bytedance/sonic"
)

type pageToken struct {
	PartitionKey string `json:"pk"`
	RowKey       string `json:"rk"`
}

func encodePageToken(pk, rk *string) string {
	if pk == nil {
		return ""
	}
	tok := pageToken{PartitionKey: *pk}
	if rk != nil {
		tok.RowKey = *rk
	}
	data, err := sonic.Marshal(tok)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodePageToken(token string) (string, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrInvalidPageToken
	}
	var tok pageToken
	if err := sonic.Unmarshal(data, &tok); err != nil || tok.PartitionKey == "" {
		return "", "", ErrInvalidPageToken
	}
	return tok.PartitionKey, tok.RowKey, nil
}
