package scenarios

import (
	"math/rand"

	"github.com/devicelab-dev/pageflow/pkg/config"
)

const (
	testUserPassword = "Test123456"
	lowercase        = "abcdefghijklmnopqrstuvwxyz"
)

// NewTestUser returns fresh registration data: test_xxxxxx@example.com.
func NewTestUser() config.Credentials {
	suffix := randomLower(6)
	return config.Credentials{
		Email:    "test_" + suffix + "@example.com",
		Password: testUserPassword,
		Name:     "Test User " + suffix,
	}
}

func randomLower(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = lowercase[rand.Intn(len(lowercase))]
	}
	return string(b)
}
