package auth

import "context"

type securityContextKey struct{}

// SetSecurityContext stores the request's SecurityContext on the context
// for downstream consumers (handlers, authorization checks).
func SetSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// GetSecurityContext retrieves the SecurityContext attached by the
// security filter. The second return is false when the request never
// passed through the filter.
func GetSecurityContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok
}

type containerPrincipalKey struct{}

// SetContainerPrincipal stores the identity established by the upstream
// single-sign-on valve on the context.
func SetContainerPrincipal(ctx context.Context, cp *ContainerPrincipal) context.Context {
	return context.WithValue(ctx, containerPrincipalKey{}, cp)
}

// GetContainerPrincipal retrieves the upstream SSO identity, when one
// was attached for this request.
func GetContainerPrincipal(ctx context.Context) (*ContainerPrincipal, bool) {
	cp, ok := ctx.Value(containerPrincipalKey{}).(*ContainerPrincipal)
	return cp, ok
}
