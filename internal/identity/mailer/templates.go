package mailer

import "fmt"

// VerificationEmail renders the address-verification message.
func VerificationEmail(name, verifyURL string) (subject, html string) {
	subject = "Verify your email address"
	html = fmt.Sprintf(`<p>Hi %s,</p>
<p>Confirm this address for your Corvid Mail account by clicking the link below.</p>
<p><a href="%s">Verify email address</a></p>
<p>If you did not create this account you can ignore this message.</p>`, name, verifyURL)
	return subject, html
}

// PasswordResetEmail renders the reset message.
func PasswordResetEmail(name, resetURL string) (subject, html string) {
	subject = "Reset your password"
	html = fmt.Sprintf(`<p>Hi %s,</p>
<p>Someone requested a password reset for your Corvid Mail account. The link below is valid for one hour and can be used once.</p>
<p><a href="%s">Reset password</a></p>
<p>If this wasn't you, your password is unchanged and you can ignore this message.</p>`, name, resetURL)
	return subject, html
}
