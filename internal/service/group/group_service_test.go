package groupsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateRejectsEmptyFields(t *testing.T) {
	s := &Service{}

	cases := []struct {
		name    string
		ownerID string
		group   string
	}{
		{"empty owner_id", "", "Game Night"},
		{"empty name", "alice", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			group, err := s.Create(tc.ownerID, tc.group)
			assert.Nil(t, group)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
