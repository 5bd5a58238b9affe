package rooms

import (
	"math/rand"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	// maxCodeAttempts bounds collision retries. If every attempt collides
	// the last candidate is used anyway: a duplicate code is tolerated in
	// preference to failing room creation.
	maxCodeAttempts = 10
)

func randomCode(rng *rand.Rand) string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// generateCode returns a join code unique among active rooms, retrying up
// to maxCodeAttempts times. Caller must hold the coordinator lock.
func (c *Coordinator) generateCode() string {
	var code string
	for range maxCodeAttempts {
		code = randomCode(c.rng)
		if _, taken := c.codes[code]; !taken {
			return code
		}
	}

	c.log.Printf("code generation exhausted %d attempts, accepting duplicate %q", maxCodeAttempts, code)
	return code
}
