package mail

import "fmt"

// Subjects and bodies for the verification mails. Bodies stay plain text on
// purpose: campus relays with strict filters tend to defer HTML mail.
const (
	registrationSubject = "Your registration verification code"
	resetSubject        = "Your password reset verification code"
)

// RegistrationCodeMail renders the mail carrying a registration code.
// ttlSeconds is the remaining validity communicated to the user.
func RegistrationCodeMail(code string, ttlSeconds int) (subject, body string) {
	body = fmt.Sprintf(
		"Your verification code is %s.\n\n"+
			"Enter it to finish creating your account. The code expires in %d seconds.\n"+
			"If you did not request this, you can safely ignore this mail.\n",
		code, ttlSeconds,
	)
	return registrationSubject, body
}

// ResetCodeMail renders the mail carrying a password reset code.
func ResetCodeMail(code string, ttlSeconds int) (subject, body string) {
	body = fmt.Sprintf(
		"Your password reset code is %s.\n\n"+
			"Enter it to choose a new password. The code expires in %d seconds.\n"+
			"If you did not request a reset, your password is unchanged and no action is needed.\n",
		code, ttlSeconds,
	)
	return resetSubject, body
}
