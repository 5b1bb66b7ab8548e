// Package qrtoken 扫码凭证的编解码与验签
//
// 凭证格式: base64url(JSON payload) + "." + base64url(HMAC-SHA256(payload 段))
// 解码时先做常量时间验签，验签通过后才解析 JSON。
package qrtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Kind 凭证类型
type Kind string

const (
	// KindCard 管理员发放的长期餐卡，可以不设过期时间
	KindCard Kind = "meal_card"
	// KindLink 短时效深链，必须带过期时间和 nonce
	KindLink Kind = "meal_link"
)

const delimiter = "."

// 解码错误，Error() 即对外的原因码
var (
	ErrInvalidFormat    = errors.New("invalid_format")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrExpired          = errors.New("expired")
	ErrWrongType        = errors.New("wrong_type")
)

var encoding = base64.RawURLEncoding

// Payload 凭证内容
type Payload struct {
	Kind       Kind   `json:"typ"`
	CustomerID string `json:"cid"`
	TenantID   string `json:"tid"`
	QRID       string `json:"qid"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp,omitempty"` // 0 表示不过期
	Nonce      string `json:"nonce,omitempty"`
}

// Expiry 过期时间，不过期返回零值
func (p Payload) Expiry() time.Time {
	if p.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(p.ExpiresAt, 0)
}

// Encode 签发凭证
// ttl > 0 时设置过期时间；IssuedAt 为空时取当前时间
func Encode(p Payload, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("qrtoken: empty secret")
	}
	if p.IssuedAt == 0 {
		p.IssuedAt = time.Now().Unix()
	}
	if ttl > 0 {
		p.ExpiresAt = p.IssuedAt + int64(ttl/time.Second)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	body := encoding.EncodeToString(raw)
	return body + delimiter + encoding.EncodeToString(sign([]byte(body), secret)), nil
}

// NewNonce 生成深链使用的随机 nonce
func NewNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func sign(body, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Options 解码选项
type Options struct {
	// Now 用于过期判断，零值取当前时间
	Now time.Time
	// Kinds 允许的凭证类型，空表示全部允许
	Kinds []Kind
	// AllowNoExpiry 允许 exp 为 0 的凭证 (仅对 KindCard 生效)
	AllowNoExpiry bool
}

// Decode 验签并解析凭证
func Decode(credential string, secret []byte, opts Options) (*Payload, error) {
	body, sig, ok := strings.Cut(strings.TrimSpace(credential), delimiter)
	if !ok || body == "" || sig == "" || strings.Contains(sig, delimiter) {
		return nil, ErrInvalidFormat
	}
	raw, err := encoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	gotMAC, err := encoding.DecodeString(sig)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	// 常量时间比较，且在信任任何字段之前完成
	if !hmac.Equal(gotMAC, sign([]byte(body), secret)) {
		return nil, ErrInvalidSignature
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalidFormat
	}
	if p.CustomerID == "" || p.TenantID == "" {
		return nil, ErrInvalidFormat
	}

	if !kindAllowed(p.Kind, opts.Kinds) {
		return nil, ErrWrongType
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if p.ExpiresAt == 0 {
		if p.Kind != KindCard || !opts.AllowNoExpiry {
			return nil, ErrExpired
		}
	} else if now.Unix() > p.ExpiresAt {
		return nil, ErrExpired
	}
	if p.Kind == KindLink && p.Nonce == "" {
		return nil, ErrInvalidFormat
	}

	return &p, nil
}

func kindAllowed(k Kind, kinds []Kind) bool {
	if k != KindCard && k != KindLink {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
