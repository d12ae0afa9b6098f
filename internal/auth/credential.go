package auth

// Credential is proof of identity presented at sign-in. The set of
// implementations is closed: PasswordCredential and ExternalCredential.
type Credential interface {
	// Method names the sign-in path, used for metrics and logs.
	Method() string
	credential()
}

// PasswordCredential is an email and password pair.
type PasswordCredential struct {
	Email    string
	Password string
}

func (PasswordCredential) Method() string { return "password" }
func (PasswordCredential) credential()    {}

// ExternalCredential is an identity asserted by an external provider after
// it completed its own sign-in flow.
type ExternalCredential struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

func (c ExternalCredential) Method() string { return c.Provider }
func (ExternalCredential) credential()      {}
