package models

// ConnectToken is the response of the identity/connect/token endpoint. The
// OAuth fields arrive snake_cased while the key material and KDF parameters
// arrive PascalCased; both are accepted through the permissive decoder.
type ConnectToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`

	// Wrapped key material: Key holds the user symmetric key encrypted with
	// the stretched master key, PrivateKey holds the RSA private key
	// encrypted with the user key.
	Key        string `json:"key"`
	PrivateKey string `json:"privateKey"`

	Kdf            KdfType `json:"kdf"`
	KdfIterations  int     `json:"kdfIterations"`
	KdfMemory      int     `json:"kdfMemory,omitempty"`
	KdfParallelism int     `json:"kdfParallelism,omitempty"`

	ResetMasterPassword bool `json:"resetMasterPassword,omitempty"`
	UnofficialServer    bool `json:"unofficialServer,omitempty"`
}
