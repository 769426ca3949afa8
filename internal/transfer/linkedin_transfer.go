package transfer

type LinkedinTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// LinkedinProfile mirrors the versioned People API projection
// (id,localizedFirstName,localizedLastName,profilePicture).
type LinkedinProfile struct {
	ID                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
	LocalizedLastName  string `json:"localizedLastName"`
	ProfilePicture     struct {
		DisplayImage string `json:"displayImage"`
	} `json:"profilePicture"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}
