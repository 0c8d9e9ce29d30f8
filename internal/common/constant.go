package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MinutesLeftHeaderName is the trailer key carrying the remaining lockout
// minutes on a temporary-lock denial.
const MinutesLeftHeaderName = "minutes_left"
