package client

const API_PREFIX = "/api2"

const (
	LoginEndpoint     = API_PREFIX + "/token-auth/"
	LogoutEndpoint    = API_PREFIX + "/token-auth/logout"
	KeysEndpoint      = API_PREFIX + "/keys"
	SeatsEndpoint     = API_PREFIX + "/seats"
	AgentsEndpoint    = API_PREFIX + "/agents"
	VariablesEndpoint = API_PREFIX + "/variables"

	OpenAIEndpoint = "/openai/"
)

const DefaultServiceURL = "https://app.propel.valory.xyz"
