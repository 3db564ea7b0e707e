package upstream

// LoginReply is the portal's answer to a login-endpoint call. The same
// endpoint serves the first factor, the SMS code verification, and the
// resend request; the populated fields distinguish the outcomes.
type LoginReply struct {
	// Status is "ok" on full success.
	Status string `json:"status"`

	// Message carries the human-readable error or prompt text.
	Message string `json:"message"`

	// CodeLength is set (e.g. 6) when the portal demands an SMS code.
	CodeLength int `json:"code2falength"`

	// ChallengeHeader is an alternative second-factor marker some
	// accounts receive instead of a code length.
	ChallengeHeader string `json:"desc2faheader"`

	// WaitSeconds is the portal's hint for how long to wait before
	// requesting another SMS.
	WaitSeconds int `json:"secondwait"`
}

// Succeeded reports the explicit success marker.
func (r LoginReply) Succeeded() bool { return r.Status == "ok" }

// NeedsSecondFactor reports the second-factor marker.
func (r LoginReply) NeedsSecondFactor() bool {
	return r.CodeLength > 0 || r.ChallengeHeader != ""
}

// UserInfoReply is the portal's user-info answer, queried right after a
// login completes.
type UserInfoReply struct {
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`

	CurrentCustomer struct {
		NameShort string `json:"nameShort"`
		IDEx      string `json:"idEx"`
	} `json:"currentCustomer"`

	PriceType struct {
		Name string `json:"name"`
	} `json:"pricetype"`
}

// Response is the raw result of a proxied business call, passed through
// to the caller untouched.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
