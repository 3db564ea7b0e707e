package gatesdk

// LoginRequest starts a login attempt with portal credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CodeRequest answers a pending second-factor challenge.
type CodeRequest struct {
	TempID string `json:"tempId"`
	Code   string `json:"code"`
}

// ResendRequest asks for a fresh SMS on a pending challenge.
type ResendRequest struct {
	TempID string `json:"tempId"`
}

// Profile is the account summary cached when a session is established.
type Profile struct {
	UserName     string `json:"user"`
	Email        string `json:"email"`
	CustomerName string `json:"customer"`
	CustomerID   string `json:"customerId"`
	PriceTier    string `json:"priceType"`
}

// SecondFactor describes a pending SMS challenge.
type SecondFactor struct {
	TempID      string `json:"tempId"`
	CodeLength  int    `json:"codeLength,omitempty"`
	WaitSeconds int    `json:"waitSeconds,omitempty"`
	Message     string `json:"message,omitempty"`
}

// LoginResponse is the answer to a login or code submission. Exactly one
// shape is populated: Authenticated true with a session, or a pending
// SecondFactor.
type LoginResponse struct {
	Authenticated bool     `json:"authenticated"`
	SessionID     string   `json:"sessionId,omitempty"`
	Profile       *Profile `json:"profile,omitempty"`

	SecondFactor *SecondFactor `json:"secondFactor,omitempty"`
}

// ResendResponse reports the portal's updated resend hint.
type ResendResponse struct {
	TempID      string `json:"tempId"`
	WaitSeconds int    `json:"waitSeconds,omitempty"`
	Message     string `json:"message,omitempty"`
}

// SessionResponse describes an established session.
type SessionResponse struct {
	SessionID       string  `json:"sessionId"`
	Profile         Profile `json:"profile"`
	CreatedAt       string  `json:"createdAt"`
	LastUsedAt      string  `json:"lastUsedAt"`
	LastRefreshedAt string  `json:"lastRefreshedAt"`
}

// StatusResponse is the health endpoint's answer.
type StatusResponse struct {
	Status            string `json:"status"`
	Uptime            string `json:"uptime"`
	Version           string `json:"version"`
	Sessions          int    `json:"sessions"`
	PendingChallenges int    `json:"pendingChallenges"`
}
