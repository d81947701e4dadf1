package sandbox

import (
	"github.com/alexedwards/argon2id"
)

// Sandbox accounts are hashed with deliberately light parameters: the store
// lives in memory and tests create many users.
var hashParams = argon2id.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// hashPassword returns a PHC string like `$argon2id$v=19$m=8192,t=1,p=1$...`
func hashPassword(plain string) (string, error) {
	return argon2id.CreateHash(plain, &hashParams)
}

func checkPassword(plain, phc string) bool {
	match, err := argon2id.ComparePasswordAndHash(plain, phc)
	return err == nil && match
}
