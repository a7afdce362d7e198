package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestUnmarshalAcceptsEitherCasing(t *testing.T) {
	pascal := []byte(`{
		"Id": "6c1a24cc-4f54-4b67-8c12-67e0c0d1a111",
		"Email": "admin@example.com",
		"Name": "Admin",
		"UserEnabled": true,
		"TwoFactorEnabled": false,
		"_Status": 0,
		"Organizations": [{"Id": "9a9ff716-2a38-4e2f-a381-20a9ab9b7b22", "Name": "Ops"}]
	}`)
	camel := []byte(`{
		"id": "6c1a24cc-4f54-4b67-8c12-67e0c0d1a111",
		"email": "admin@example.com",
		"name": "Admin",
		"userEnabled": true,
		"twoFactorEnabled": false,
		"_status": 0,
		"organizations": [{"id": "9a9ff716-2a38-4e2f-a381-20a9ab9b7b22", "name": "Ops"}]
	}`)

	for _, raw := range [][]byte{pascal, camel} {
		var user VaultwardenUser
		if err := Unmarshal(raw, &user); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if user.Email != "admin@example.com" {
			t.Errorf("email = %q", user.Email)
		}
		if !user.UserEnabled {
			t.Error("expected userEnabled true")
		}
		if len(user.Organizations) != 1 || user.Organizations[0].Name != "Ops" {
			t.Errorf("organizations = %+v", user.Organizations)
		}
		if user.EffectiveStatus() != UserStatusEnabled {
			t.Errorf("effective status = %v", user.EffectiveStatus())
		}
	}
}

func TestUnmarshalConnectToken(t *testing.T) {
	raw := []byte(`{
		"access_token": "tok",
		"refresh_token": "ref",
		"expires_in": 3600,
		"token_type": "Bearer",
		"scope": "api",
		"Key": "2.aa|bb|cc",
		"PrivateKey": "2.dd|ee|ff",
		"Kdf": 0,
		"KdfIterations": 600000
	}`)
	var token ConnectToken
	if err := Unmarshal(raw, &token); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if token.AccessToken != "tok" || token.RefreshToken != "ref" {
		t.Errorf("tokens = %q / %q", token.AccessToken, token.RefreshToken)
	}
	if token.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d", token.ExpiresIn)
	}
	if token.Key != "2.aa|bb|cc" || token.PrivateKey != "2.dd|ee|ff" {
		t.Errorf("key material = %q / %q", token.Key, token.PrivateKey)
	}
	if token.Kdf != KdfPBKDF2 || token.KdfIterations != 600000 {
		t.Errorf("kdf = %v / %d", token.Kdf, token.KdfIterations)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{"Id": "9a9ff716-2a38-4e2f-a381-20a9ab9b7b22", "Name": "Ops", "UseSso": true, "PlanName": "free"}`)
	var org ProfileOrganization
	if err := Unmarshal(raw, &org); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := uuid.MustParse("9a9ff716-2a38-4e2f-a381-20a9ab9b7b22")
	if org.ID != want || org.Name != "Ops" {
		t.Errorf("org = %+v", org)
	}
}

func TestUnmarshalMalformedJSON(t *testing.T) {
	var token ConnectToken
	if err := Unmarshal([]byte(`{"access_token": `), &token); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
