package auth

import "encoding/base64"

// PHC strings conventionally use unpadded standard base64 for their salt
// and hash segments.
func b64Encode(b []byte) string { return base64.RawStdEncoding.EncodeToString(b) }

func b64Decode(s string) ([]byte, error) { return base64.RawStdEncoding.DecodeString(s) }
