package api

import (
	"bytes"
	"mime"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the binary alternative to JSON responses.
const MIMEApplicationMsgpack = "application/msgpack"

// respond writes v as msgpack when the client asks for it, JSON otherwise.
// Msgpack keys follow the json tags so both encodings carry the same fields.
func respond(c echo.Context, status int, v interface{}) error {
	if !wantsMsgpack(c.Request().Header.Get(echo.HeaderAccept)) {
		return c.JSON(status, v)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return NewInternalError(err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, buf.Bytes())
}

func wantsMsgpack(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mt == MIMEApplicationMsgpack || mt == "application/x-msgpack" {
			return true
		}
	}
	return false
}
