/*
Package authsdk is a Go client for the portal authentication service.

A Client behaves like a single browser: it keeps the HTTP-only session
cookie in a cookie jar and sends it on every request.

	c := authsdk.NewClient("http://localhost:8080")

	login, err := c.Login(ctx, "admin@example.com", "Admin123!")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// wrong email or password
		}
		return err
	}

	if login.NeedMFA {
		// code from the email, or "totp" with an authenticator code
		if err := c.VerifyMFA(ctx, login.User.Email, "email", code); err != nil {
			return err
		}
	}

	me, err := c.Me(ctx)

Adding an authenticator app requires a fully verified session:

	setup, err := c.SetupMFA(ctx)
	// show setup.OTPAuth as a QR code, then
	err = c.EnableMFA(ctx, setup.Secret, codeFromApp)

Every failure response is returned as *APIError with the HTTP status, the
error code and, for validation failures, per-field details.
*/
package authsdk
