// Package propel is an in-memory stand-in for the Propel service used by
// package tests. It speaks the same endpoints and error bodies as the real
// service and lets tests script agent state transitions and inject failures.
package propel

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

const (
	DefaultUsername = "alice"
	DefaultPassword = "secret"
	DefaultToken    = "0123456789abcdef"
)

type fakeAgent struct {
	agent models.Agent
	// pending states returned by successive describe calls. The last state
	// sticks once the queue is drained.
	pending []models.AgentState
}

type failure struct {
	status int
	count  int
}

// Service is a fake Propel API backed by httptest.
type Service struct {
	mu sync.Mutex

	server *httptest.Server

	Username string
	Password string
	Token    string

	Seats models.Seats

	// CreateStates and RestartStates are queued on the agent after the
	// corresponding call, simulating server-side processing.
	CreateStates  []models.AgentState
	RestartStates []models.AgentState
	StopStates    []models.AgentState

	agents    map[string]*fakeAgent
	variables map[string]models.Variable
	keys      []models.Key

	failures map[string]*failure
	requests map[string]int
	headers  []http.Header
}

func NewService() *Service {
	gin.SetMode(gin.TestMode)

	s := &Service{
		Username:      DefaultUsername,
		Password:      DefaultPassword,
		Token:         DefaultToken,
		Seats:         models.Seats{NAvailable: 1, NTotal: 1},
		CreateStates:  []models.AgentState{models.AgentStateCreated, models.AgentStateDeployed},
		RestartStates: []models.AgentState{models.AgentStateDeployed, models.AgentStateStarted},
		StopStates:    []models.AgentState{models.AgentStateDeployed},
		agents:        make(map[string]*fakeAgent),
		variables:     make(map[string]models.Variable),
		failures:      make(map[string]*failure),
		requests:      make(map[string]int),
	}

	s.server = httptest.NewServer(s.router())
	return s
}

func (s *Service) URL() string {
	return s.server.URL
}

func (s *Service) Close() {
	s.server.Close()
}

func (s *Service) router() *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(s.recordMiddleware(), s.failureMiddleware())

	router.POST("/api2/token-auth/", s.postLogin)

	api := router.Group("/", s.authMiddleware())
	api.GET("/api2/token-auth/logout", s.getLogout)

	api.GET("/api2/keys", s.getKeys)
	api.POST("/api2/keys/", s.postKey)

	api.GET("/api2/seats", s.getSeats)

	api.GET("/api2/agents", s.getAgents)
	api.POST("/api2/agents/", s.postAgent)
	api.GET("/api2/agents/:name", s.getAgent)
	api.GET("/api2/agents/:name/:action", s.getAgentAction)

	api.GET("/api2/variables/", s.getVariables)
	api.POST("/api2/variables/", s.postVariable)

	api.POST("/openai/", s.postOpenAI)

	return router
}

// FailNext makes the next count requests whose path starts with prefix
// answer with status.
func (s *Service) FailNext(prefix string, status int, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = &failure{status: status, count: count}
}

// Requests returns how many requests were received for method and path.
func (s *Service) Requests(method string, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// LastHeaders returns the headers of the most recent request.
func (s *Service) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

// PutAgent seeds an agent and the states its describe calls will return.
func (s *Service) PutAgent(agent models.Agent, pending ...models.AgentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.Name] = &fakeAgent{agent: agent, pending: pending}
}

// RotateToken invalidates every token handed out so far.
func (s *Service) RotateToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Token = token
}

// SetSeats changes the seat counters reported to clients.
func (s *Service) SetSeats(seats models.Seats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Seats = seats
}

func (s *Service) GetAgent(name string) (models.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[name]
	if !ok {
		return models.Agent{}, false
	}
	return a.agent, true
}

func (s *Service) Variables() []models.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedVariables()
}

func (s *Service) recordMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests[c.Request.Method+" "+c.Request.URL.Path]++
		s.headers = append(s.headers, c.Request.Header.Clone())
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Service) failureMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		for prefix, f := range s.failures {
			if f.count > 0 && strings.HasPrefix(c.Request.URL.Path, prefix) {
				f.count--
				s.mu.Unlock()
				c.AbortWithStatusJSON(f.status, gin.H{"detail": http.StatusText(f.status)})
				return
			}
		}
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Service) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		token := s.Token
		s.mu.Unlock()

		if c.GetHeader("Authorization") != "Token "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token."})
			return
		}
		c.Next()
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (s *Service) postLogin(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.PostForm("username") != s.Username || c.PostForm("password") != s.Password {
		c.JSON(http.StatusBadRequest, gin.H{
			"non_field_errors": []string{"Unable to log in with provided credentials."},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": s.Token})
}

func (s *Service) getLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Service) getKeys(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.keys)
}

func (s *Service) postKey(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.Key{ID: models.Ref(strconv.Itoa(len(s.keys) + 1))}
	s.keys = append(s.keys, key)
	c.JSON(http.StatusCreated, key)
}

func (s *Service) getSeats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.Seats)
}

func (s *Service) getAgents(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.agents))
	for name := range s.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	agents := make([]models.Agent, 0, len(names))
	for _, name := range names {
		agents = append(agents, s.agents[name].agent)
	}
	c.JSON(http.StatusOK, agents)
}

func (s *Service) postAgent(c *gin.Context) {
	var req models.AgentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.agents[req.Name]; exists {
		c.JSON(http.StatusBadRequest, gin.H{
			"name": []string{"agent with this name already exists."},
		})
		return
	}

	variables := make([]models.Ref, 0, len(req.Variables))
	for _, v := range req.Variables {
		variables = append(variables, models.Ref(v))
	}

	agent := models.Agent{
		ID:                       models.Ref(strconv.Itoa(len(s.agents) + 1)),
		Name:                     req.Name,
		Key:                      models.Ref(strconv.Itoa(req.Key)),
		ServiceIPFSHash:          req.ServiceIPFSHash,
		Variables:                variables,
		ChainID:                  req.ChainID,
		TokenID:                  req.TokenID,
		IngressEnabled:           req.IngressEnabled,
		TendermintIngressEnabled: req.TendermintIngressEnabled,
		State:                    models.AgentStateCreated,
	}

	s.agents[req.Name] = &fakeAgent{
		agent:   agent,
		pending: append([]models.AgentState(nil), s.CreateStates...),
	}

	c.JSON(http.StatusCreated, agent)
}

func (s *Service) getAgent(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[c.Param("name")]
	if !ok {
		notFound(c)
		return
	}

	if len(a.pending) > 0 {
		a.agent.State = a.pending[0]
		a.pending = a.pending[1:]
	}

	c.JSON(http.StatusOK, a.agent)
}

func (s *Service) getAgentAction(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := c.Param("name")
	a, ok := s.agents[name]
	if !ok {
		notFound(c)
		return
	}

	switch c.Param("action") {
	case "restart":
		a.pending = append([]models.AgentState(nil), s.RestartStates...)
	case "stop":
		a.pending = append([]models.AgentState(nil), s.StopStates...)
	case "delete":
		delete(s.agents, name)
	default:
		notFound(c)
		return
	}

	c.JSON(http.StatusOK, a.agent)
}

func (s *Service) getVariables(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.sortedVariables())
}

// postVariable upserts by name, like the real service.
func (s *Service) postVariable(c *gin.Context) {
	var variable models.Variable
	if err := c.ShouldBindJSON(&variable); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if len(variable.Name) == 0 || !variable.Type.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid variable"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.variables[variable.Name]; ok {
		variable.ID = existing.ID
	} else {
		variable.ID = models.Ref(strconv.Itoa(len(s.variables) + 1))
	}
	s.variables[variable.Name] = variable

	c.JSON(http.StatusCreated, variable)
}

func (s *Service) postOpenAI(c *gin.Context) {
	var req struct {
		EndpointPath string `json:"endpoint_path"`
		Payload      any    `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    req.EndpointPath,
		"payload": req.Payload,
	})
}

func (s *Service) sortedVariables() []models.Variable {
	names := make([]string, 0, len(s.variables))
	for name := range s.variables {
		names = append(names, name)
	}
	sort.Strings(names)

	variables := make([]models.Variable, 0, len(names))
	for _, name := range names {
		variables = append(variables, s.variables[name])
	}
	return variables
}
