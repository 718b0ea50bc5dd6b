package authv1

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used in request, response and error-detail structs.
const (
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
	FieldUser         = "user"
	FieldID           = "id"
	FieldEmail        = "email"
	FieldFullName     = "full_name"
	FieldStatus       = "status"
	FieldErrorMessage = "error_message"
)

// User is the account view carried in Login and WhoAmI responses.
type User struct {
	ID       string
	Username string
	Email    string
	FullName string
}

// Fields builds a Struct from string fields.
func Fields(kv map[string]string) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(kv))
	for k, v := range kv {
		fields[k] = structpb.NewStringValue(v)
	}
	return &structpb.Struct{Fields: fields}
}

// String returns the string field key of s, or "" when absent or not a
// string.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return ""
	}
	return sv.StringValue
}

func NewLoginRequest(username, password string) *structpb.Struct {
	return Fields(map[string]string{FieldUsername: username, FieldPassword: password})
}

func NewRefreshTokenRequest(refreshToken string) *structpb.Struct {
	return Fields(map[string]string{FieldRefreshToken: refreshToken})
}

// NewRegisterRequest carries a new local account. The password travels in
// clear over the channel, as it does for Login.
func NewRegisterRequest(u User, password string) *structpb.Struct {
	return Fields(map[string]string{
		FieldUsername: u.Username,
		FieldEmail:    u.Email,
		FieldFullName: u.FullName,
		FieldPassword: password,
	})
}

func NewSetPasswordRequest(password string) *structpb.Struct {
	return Fields(map[string]string{FieldPassword: password})
}

// UserStruct encodes u for a response.
func UserStruct(u User) *structpb.Struct {
	return Fields(map[string]string{
		FieldID:       u.ID,
		FieldUsername: u.Username,
		FieldEmail:    u.Email,
		FieldFullName: u.FullName,
	})
}

// UserFrom decodes the user carried under FieldUser, or s itself when it
// has no such field.
func UserFrom(s *structpb.Struct) User {
	if v, ok := s.GetFields()[FieldUser]; ok {
		s = v.GetStructValue()
	}
	return User{
		ID:       String(s, FieldID),
		Username: String(s, FieldUsername),
		Email:    String(s, FieldEmail),
		FullName: String(s, FieldFullName),
	}
}

// NewSessionResponse builds a Login response.
func NewSessionResponse(u User, accessToken, refreshToken string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldUser:         structpb.NewStructValue(UserStruct(u)),
		FieldAccessToken:  structpb.NewStringValue(accessToken),
		FieldRefreshToken: structpb.NewStringValue(refreshToken),
	}}
}

// NewErrorDetail builds the error detail attached to authentication
// failures: {"error_message": msg} for one method, or
// {"error_message": {method: msg, ...}} when several methods failed.
func NewErrorDetail(messages map[string]string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldErrorMessage: structpb.NewStructValue(Fields(messages)),
	}}
}

func NewSingleErrorDetail(msg string) *structpb.Struct {
	return Fields(map[string]string{FieldErrorMessage: msg})
}

// ErrorMessages reads an error detail. Per-method messages are returned as
// a map; a single message comes back under the "" key.
func ErrorMessages(detail *structpb.Struct) map[string]string {
	v, ok := detail.GetFields()[FieldErrorMessage]
	if !ok {
		return nil
	}
	if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return map[string]string{"": sv.StringValue}
	}
	out := map[string]string{}
	for k, m := range v.GetStructValue().GetFields() {
		out[k] = m.GetStringValue()
	}
	return out
}
