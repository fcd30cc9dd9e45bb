package cont

import (
	"context"
)

type ctxKey string

const SessionIDKey ctxKey = "sessionID"

func PutSessionID(c context.Context, sid string) context.Context {
	return context.WithValue(c, SessionIDKey, sid)
}

func GetSessionID(c context.Context) string {
	sid, ok := c.Value(SessionIDKey).(string)
	if !ok {
		return ""
	}
	return sid
}
