package authsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterRejectsEmptyFields(t *testing.T) {
	s := &Service{}

	cases := []struct {
		name     string
		userID   string
		nickname string
		password string
	}{
		{"empty user_id", "", "Alice", "secret"},
		{"empty nickname", "alice", "", "secret"},
		{"empty password", "alice", "Alice", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Register(tc.userID, tc.nickname, tc.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
