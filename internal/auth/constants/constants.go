package constants

const (
	// CodeQueryParam carries the authorization code on the redirect URL
	CodeQueryParam = "code"

	// ErrorQueryParam and ErrorDescriptionQueryParam are set by the provider on failure or cancellation
	ErrorQueryParam            = "error"
	ErrorDescriptionQueryParam = "error_description"

	// DefaultProvider is the OAuth provider the sign-in screens offer
	DefaultProvider = "google"

	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// CodeChallengeMethod is sent to the backend authorize endpoint
	CodeChallengeMethod = "s256"
)

// Alert titles shown to the user
const (
	AlertAuthError  = "Auth error"
	AlertOAuthError = "OAuth error"
)

// Fallback alert messages when an error carries no text
const (
	FallbackResolveMessage = "Could not complete sign-in"
	FallbackStartMessage   = "Could not start Google sign-in"
)

// Account screen alerts
const (
	AlertError              = "Error"
	AlertSignInFailed       = "Sign in failed"
	AlertSignUpFailed       = "Sign up failed"
	AlertEmailRegistered    = "Email already registered"
	AlertVerifyEmail        = "Verify your email"
	AlertInvalidEmail       = "Invalid email"
	AlertResendFailed       = "Could not resend"
	AlertVerificationSent   = "Verification sent"
	AlertEmailVerified      = "Email verified"
	FallbackMessage         = "Something went wrong"
	VerifyEmailMessage      = "We have sent a verification link to your email. Please verify your email before signing in."
	InvalidResendMessage    = "Enter a valid email to resend the verification link."
	VerificationSentMessage = "Please check your inbox for the new verification email."
	EmailVerifiedMessage    = "Your email is verified. Please go back to the app and sign in."
)
