// Verificación de firmas de callbacks del gateway.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign calcula el HMAC-SHA256 hex del material con el secreto compartido.
func Sign(material, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(material))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compara la firma recibida contra la esperada en tiempo constante.
// hmac.Equal evita que el tiempo de respuesta filtre en qué byte difiere.
func Verify(material, signature, secret string) bool {
	expected := Sign(material, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
