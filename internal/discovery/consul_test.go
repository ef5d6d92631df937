package discovery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationFor(t *testing.T) {
	reg, err := RegistrationFor("brigade", "10.0.0.5:8080")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", reg.Host)
	assert.Equal(t, 8080, reg.Port)
	assert.Equal(t, "brigade-10.0.0.5-8080", reg.ID)

	_, err = RegistrationFor("brigade", "8080")
	assert.Error(t, err)
}

func TestRegisterAndDeregister(t *testing.T) {
	var (
		registered api.AgentServiceRegistration
		deregPath  string
	)
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/agent/service/register":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&registered))
		case strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
			deregPath = r.URL.Path
		default:
			http.NotFound(w, r)
		}
	}))
	defer agent.Close()

	reg := Registration{Name: "brigade", ID: "brigade-a", Host: "10.0.0.5", Port: 8080}
	r, err := NewRegistry(strings.TrimPrefix(agent.URL, "http://"), reg, nil)
	require.NoError(t, err)

	require.NoError(t, r.Register())
	assert.Equal(t, "brigade-a", registered.ID)
	assert.Equal(t, 8080, registered.Port)
	require.NotNil(t, registered.Check)
	assert.Equal(t, "http://10.0.0.5:8080/healthz", registered.Check.HTTP)

	require.NoError(t, r.Deregister())
	assert.Equal(t, "/v1/agent/service/deregister/brigade-a", deregPath)
}
