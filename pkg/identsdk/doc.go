// Package identsdk is the Go client for the Corvid identity service.
//
// Unauthenticated operations (register, login, refresh, SSO discovery,
// password reset) live on Client. A successful login returns a Session,
// which carries the token pair and refreshes the access token
// transparently before it expires.
//
//	client := identsdk.NewClient("https://identity.corvidmail.com")
//
//	session, err := client.Login(ctx, "fin@example.com", "password")
//	var mfaErr *identsdk.MFARequiredError
//	if errors.As(err, &mfaErr) {
//		session, err = client.CompleteMFA(ctx, mfaErr, "totp", code)
//	}
//	if err != nil {
//		return err
//	}
//
//	me, err := session.Me(ctx)
//
// Server handlers reuse the same error values: APIError.WriteError emits
// the JSON body the client parses back with errors.As.
package identsdk
