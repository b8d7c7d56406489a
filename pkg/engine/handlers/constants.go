package handlers

// Node type names as registered with the host.
const (
	TypeDonationInitiated  = "charitysPurseDonationInitiated"
	TypeDonationConfirmed  = "charitysPurseDonationConfirmed"
	TypeDonationAbandoned  = "charitysPurseDonationAbandoned"
	TypeDonationTesting    = "charitysPurseDonationTesting"
	TypeDonationTestingAlt = "charitysPurseDonationTestingAlt"
	TypeHelloPollTrigger   = "helloPollTrigger"
)

// Parameter paths read from node configuration.
const (
	ParamAllowUnauthorizedCerts = "requestOptions.allowUnauthorizedCerts"
	ParamQuery                  = "requestOptions.qs"
	ParamHeaders                = "requestOptions.headers"
)
