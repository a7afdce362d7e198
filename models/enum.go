package models

import "strconv"

// CipherType identifies the kind of vault item a cipher holds.
type CipherType int

const (
	CipherTypeLogin      CipherType = 1
	CipherTypeSecureNote CipherType = 2
	CipherTypeCard       CipherType = 3
	CipherTypeIdentity   CipherType = 4
)

func (t CipherType) String() string {
	switch t {
	case CipherTypeLogin:
		return "login"
	case CipherTypeSecureNote:
		return "secure-note"
	case CipherTypeCard:
		return "card"
	case CipherTypeIdentity:
		return "identity"
	}
	return "cipher(" + strconv.Itoa(int(t)) + ")"
}

// OrganizationUserType is the role a member holds within an organization.
type OrganizationUserType int

const (
	OrgUserTypeOwner   OrganizationUserType = 0
	OrgUserTypeAdmin   OrganizationUserType = 1
	OrgUserTypeUser    OrganizationUserType = 2
	OrgUserTypeManager OrganizationUserType = 3
)

func (t OrganizationUserType) String() string {
	switch t {
	case OrgUserTypeOwner:
		return "owner"
	case OrgUserTypeAdmin:
		return "admin"
	case OrgUserTypeUser:
		return "user"
	case OrgUserTypeManager:
		return "manager"
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// OrganizationUserStatus is the membership state of an organization member.
type OrganizationUserStatus int

const (
	OrgUserStatusRevoked   OrganizationUserStatus = -1
	OrgUserStatusInvited   OrganizationUserStatus = 0
	OrgUserStatusAccepted  OrganizationUserStatus = 1
	OrgUserStatusConfirmed OrganizationUserStatus = 2
)

func (s OrganizationUserStatus) String() string {
	switch s {
	case OrgUserStatusRevoked:
		return "revoked"
	case OrgUserStatusInvited:
		return "invited"
	case OrgUserStatusAccepted:
		return "accepted"
	case OrgUserStatusConfirmed:
		return "confirmed"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// UserStatus is the account state reported by the admin interface.
type UserStatus int

const (
	UserStatusEnabled  UserStatus = 0
	UserStatusInvited  UserStatus = 1
	UserStatusDisabled UserStatus = 2
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusEnabled:
		return "enabled"
	case UserStatusInvited:
		return "invited"
	case UserStatusDisabled:
		return "disabled"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// KdfType selects the key derivation function announced by the token endpoint.
type KdfType int

const (
	KdfPBKDF2   KdfType = 0
	KdfArgon2id KdfType = 1
)

func (k KdfType) String() string {
	switch k {
	case KdfPBKDF2:
		return "pbkdf2-sha256"
	case KdfArgon2id:
		return "argon2id"
	}
	return "kdf(" + strconv.Itoa(int(k)) + ")"
}
