package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "audit_client"

// ClientInfo identifies the caller of an admin action for the audit log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo adds the caller's address and user agent to ctx.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, ctxKeyClient, ClientInfo{IPAddress: ip, UserAgent: userAgent})
}

// ClientInfoFromContext returns the caller info stored by WithClientInfo.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
