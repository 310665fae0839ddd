package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidPasswordHash         = errors.New("invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("incompatible password hash version")
)

// Argon2idParams tunes password hashing.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams are the production hashing parameters.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// CreatePasswordHash hashes password with a random salt in PHC format.
func CreatePasswordHash(password string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyPassword compares a PHC formatted argon2id hash with password.
func VerifyPassword(hashedPassword, password string) error {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 {
		return ErrInvalidPasswordHash
	}

	if parts[1] != "argon2id" {
		return ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return err
	}
	if version != argon2.Version {
		return ErrIncompatiblePasswordVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return err
	}
	params.SaltLength = uint32(len(salt))

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return err
	}
	params.KeyLength = uint32(len(decodedHash))

	comparisonHash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}

	return ErrInvalidCredentials
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// Account is a login known to a credential directory.
type Account struct {
	ID           int
	Email        string
	Name         string
	Role         Role
	PasswordHash string
}

// DemoAccount is a plaintext account definition hashed when a directory is built.
type DemoAccount struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// DemoAccounts are the fixed logins offered on the login screen.
var DemoAccounts = []DemoAccount{
	{Email: "admin@gym.com", Password: "Admin123!", Name: "Admin User", Role: RoleAdmin},
	{Email: "staff@gym.com", Password: "Staff123!", Name: "Staff Member", Role: RoleStaff},
	{Email: "trainer@gym.com", Password: "Trainer123!", Name: "Fitness Trainer", Role: RoleStaff},
}

// CredentialDirectory resolves accounts by email address.
type CredentialDirectory interface {
	Lookup(email string) (Account, bool)
}

// StaticDirectory is an immutable in-memory CredentialDirectory.
type StaticDirectory struct {
	accounts map[string]Account
}

// NewStaticDirectory hashes every account password with params.
func NewStaticDirectory(accounts []DemoAccount, params Argon2idParams) (*StaticDirectory, error) {
	dir := &StaticDirectory{accounts: make(map[string]Account, len(accounts))}
	for i, account := range accounts {
		hash, err := CreatePasswordHash(account.Password, params)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", account.Email, err)
		}
		email := strings.ToLower(strings.TrimSpace(account.Email))
		dir.accounts[email] = Account{
			ID:           i + 1,
			Email:        email,
			Name:         account.Name,
			Role:         account.Role,
			PasswordHash: hash,
		}
	}
	return dir, nil
}

// Lookup implements CredentialDirectory.
func (d *StaticDirectory) Lookup(email string) (Account, bool) {
	if d == nil {
		return Account{}, false
	}
	account, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	return account, ok
}
