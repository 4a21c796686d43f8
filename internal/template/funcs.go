package template

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucasjones/reggen"
)

// FuncMap is the table of template functions available to {{name(args)}}
// placeholders — request-body payload generators a race/exploit workflow
// needs: fresh idempotency keys, HMAC-signed bodies, jittered identifiers
// per worker. Carried over from internal/attacker/variables.go's
// VariableProcessor.funcMap; the TOTP seed helper named in spec.md's
// Non-goals is deliberately not ported here.
type FuncMap map[string]func([]string) string

const (
	lettersLower = "abcdefghijklmnopqrstuvwxyz"
	lettersUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"
	alphanum     = lettersLower + lettersUpper + digits
)

// DefaultFuncs returns the built-in function table.
func DefaultFuncs() FuncMap {
	return FuncMap{
		"hmac_sha256": func(args []string) string {
			if len(args) != 2 {
				return "ERROR:hmac_sha256_needs_2_args"
			}
			h := hmac.New(sha256.New, []byte(args[0]))
			h.Write([]byte(args[1]))
			return hex.EncodeToString(h.Sum(nil))
		},
		"base64_encode": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:base64_encode_needs_1_arg"
			}
			return base64.StdEncoding.EncodeToString([]byte(args[0]))
		},
		"md5": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:md5_needs_1_arg"
			}
			sum := md5.Sum([]byte(args[0]))
			return hex.EncodeToString(sum[:])
		},
		"sha256": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:sha256_needs_1_arg"
			}
			sum := sha256.Sum256([]byte(args[0]))
			return hex.EncodeToString(sum[:])
		},
		"uuid": func(args []string) string {
			return uuid.New().String()
		},
		"timestamp": func(args []string) string {
			return fmt.Sprintf("%d", time.Now().Unix())
		},
		"timestamp_ms": func(args []string) string {
			return fmt.Sprintf("%d", time.Now().UnixMilli())
		},
		"iso8601": func(args []string) string {
			return time.Now().UTC().Format(time.RFC3339)
		},
		"random_int_range": func(args []string) string {
			if len(args) != 2 {
				return "ERROR:random_int_range_needs_min_max"
			}
			min, _ := strconv.Atoi(strings.TrimSpace(args[0]))
			max, _ := strconv.Atoi(strings.TrimSpace(args[1]))
			if max <= min {
				return strconv.Itoa(min)
			}
			return strconv.Itoa(rand.IntN(max-min) + min)
		},
		"random_string": func(args []string) string {
			length := 10
			if len(args) >= 1 {
				if l, err := strconv.Atoi(args[0]); err == nil {
					length = l
				}
			}
			chars := alphanum
			if len(args) >= 2 {
				chars = args[1]
			}
			b := make([]byte, length)
			for i := range b {
				b[i] = chars[rand.IntN(len(chars))]
			}
			return string(b)
		},
		"regex_gen": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:regex_gen_needs_pattern"
			}
			res, err := reggen.Generate(args[0], 10)
			if err != nil {
				return "ERROR:regex_gen_failed"
			}
			return res
		},
	}
}
