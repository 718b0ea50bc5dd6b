package authv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestString(t *testing.T) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		"a": structpb.NewStringValue("x"),
		"n": structpb.NewNumberValue(3),
	}}
	assert.Equal(t, "x", String(s, "a"))
	assert.Equal(t, "", String(s, "n"))
	assert.Equal(t, "", String(s, "missing"))
	assert.Equal(t, "", String(nil, "a"))
}

func TestSessionResponseRoundTrip(t *testing.T) {
	u := User{ID: "u1", Username: "alice", Email: "a@x", FullName: "Alice"}
	resp := NewSessionResponse(u, "acc", "ref")

	assert.Equal(t, u, UserFrom(resp))
	assert.Equal(t, "acc", String(resp, FieldAccessToken))
	assert.Equal(t, "ref", String(resp, FieldRefreshToken))
	assert.Equal(t, u, UserFrom(UserStruct(u)))
}

func TestErrorMessages(t *testing.T) {
	merged := NewErrorDetail(map[string]string{"directory": "d", "local": "l"})
	assert.Equal(t, map[string]string{"directory": "d", "local": "l"}, ErrorMessages(merged))

	assert.Equal(t, map[string]string{"": "bad"}, ErrorMessages(NewSingleErrorDetail("bad")))
	assert.Nil(t, ErrorMessages(&structpb.Struct{}))
}

func TestRegisterRequestCarriesProfile(t *testing.T) {
	req := NewRegisterRequest(User{Username: "j.doe@corp.example", Email: "j@x", FullName: "J Doe"}, "pw")

	assert.Equal(t, User{Username: "j.doe@corp.example", Email: "j@x", FullName: "J Doe"}, UserFrom(req))
	assert.Equal(t, "pw", String(req, FieldPassword))
	assert.Equal(t, "pw", String(NewSetPasswordRequest("pw"), FieldPassword))
}
