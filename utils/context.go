package utils

// Keys for request-scoped values propagated from middleware into flows.
const (
	RequestIDKey  = "X-Request-ID"
	UserAgentKey  = "User-Agent"
	IPAddressKey  = "IP-Address"
	EndpointKey   = "Endpoint"
	CustomerIDKey = "Customer-ID"
)
