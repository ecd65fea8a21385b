package saml

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// XML Encryption algorithm identifiers.
const (
	algRSA15       = "http://www.w3.org/2001/04/xmlenc#rsa-1_5"
	algRSAOAEPSHA1 = "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p"
	algRSAOAEP11   = "http://www.w3.org/2009/xmlenc11#rsa-oaep"

	algAES128CBC = "http://www.w3.org/2001/04/xmlenc#aes128-cbc"
	algAES192CBC = "http://www.w3.org/2001/04/xmlenc#aes192-cbc"
	algAES256CBC = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"
	algAES128GCM = "http://www.w3.org/2009/xmlenc11#aes128-gcm"
	algAES256GCM = "http://www.w3.org/2009/xmlenc11#aes256-gcm"
)

// decryptAssertion unwraps the session key with the SP private key and
// decrypts the assertion body. Algorithms outside the supported set are
// rejected rather than guessed at.
func decryptAssertion(encrypted *etree.Element, spPrivateKeyPEM string) (*Assertion, error) {
	plaintext, err := decryptAssertionBytes(encrypted, spPrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	var assertion Assertion
	if err := xml.Unmarshal(plaintext, &assertion); err != nil {
		return nil, fmt.Errorf("%w: decrypted content is not an assertion: %v", ErrDecrypt, err)
	}
	return &assertion, nil
}

// decryptAssertionElement decrypts to an XML element so a signature carried
// inside the encrypted assertion can still be verified.
func decryptAssertionElement(encrypted *etree.Element, spPrivateKeyPEM string) (*etree.Element, error) {
	plaintext, err := decryptAssertionBytes(encrypted, spPrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(plaintext); err != nil {
		return nil, fmt.Errorf("%w: decrypted content is not XML: %v", ErrDecrypt, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: decrypted content is empty", ErrDecrypt)
	}
	return root, nil
}

func decryptAssertionBytes(encrypted *etree.Element, spPrivateKeyPEM string) ([]byte, error) {
	if spPrivateKeyPEM == "" {
		return nil, fmt.Errorf("%w: no SP private key configured", ErrDecrypt)
	}
	key, err := parseRSAPrivateKey(spPrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	encKeyEl := findElement(encrypted, "EncryptedKey")
	if encKeyEl == nil {
		return nil, fmt.Errorf("%w: no EncryptedKey element", ErrDecrypt)
	}
	sessionKey, err := unwrapSessionKey(encKeyEl, key)
	if err != nil {
		return nil, err
	}

	dataEl := findElement(encrypted, "EncryptedData")
	if dataEl == nil {
		return nil, fmt.Errorf("%w: no EncryptedData element", ErrDecrypt)
	}
	return decryptData(dataEl, sessionKey)
}

func unwrapSessionKey(encKeyEl *etree.Element, key *rsa.PrivateKey) ([]byte, error) {
	wrapped, err := cipherValue(encKeyEl)
	if err != nil {
		return nil, err
	}

	alg := encryptionAlgorithm(encKeyEl)
	switch alg {
	case algRSA15, "":
		session, err := rsa.DecryptPKCS1v15(nil, key, wrapped)
		if err != nil {
			return nil, fmt.Errorf("%w: key unwrap: %v", ErrDecrypt, err)
		}
		return session, nil
	case algRSAOAEPSHA1:
		session, err := rsa.DecryptOAEP(sha1.New(), nil, key, wrapped, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: key unwrap: %v", ErrDecrypt, err)
		}
		return session, nil
	case algRSAOAEP11:
		session, err := rsa.DecryptOAEP(sha256.New(), nil, key, wrapped, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: key unwrap: %v", ErrDecrypt, err)
		}
		return session, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key transport algorithm %q", ErrDecrypt, alg)
	}
}

func decryptData(dataEl *etree.Element, sessionKey []byte) ([]byte, error) {
	ciphertext, err := cipherValue(dataEl)
	if err != nil {
		return nil, err
	}

	alg := encryptionAlgorithm(dataEl)
	switch alg {
	case algAES128CBC, algAES192CBC, algAES256CBC:
		return decryptAESCBC(sessionKey, ciphertext)
	case algAES128GCM, algAES256GCM:
		return decryptAESGCM(sessionKey, ciphertext)
	default:
		return nil, fmt.Errorf("%w: unsupported data encryption algorithm %q", ErrDecrypt, alg)
	}
}

// cipherValue returns the element's own CipherData/CipherValue, skipping
// any nested EncryptedKey so the wrapped key and the payload never mix.
func cipherValue(el *etree.Element) ([]byte, error) {
	var cipherData *etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == "CipherData" {
			cipherData = child
			break
		}
	}
	if cipherData == nil {
		return nil, fmt.Errorf("%w: no CipherData element", ErrDecrypt)
	}
	value := findElement(cipherData, "CipherValue")
	if value == nil {
		return nil, fmt.Errorf("%w: no CipherValue element", ErrDecrypt)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value.Text()))
	if err != nil {
		return nil, fmt.Errorf("%w: cipher value decode: %v", ErrDecrypt, err)
	}
	return raw, nil
}

func encryptionAlgorithm(el *etree.Element) string {
	for _, child := range el.ChildElements() {
		if child.Tag == "EncryptionMethod" {
			return child.SelectAttrValue("Algorithm", "")
		}
	}
	return ""
}

// decryptAESCBC expects the IV in the first block and PKCS#7 padding.
func decryptAESCBC(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(ciphertext) < aes.BlockSize || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block aligned", ErrDecrypt)
	}

	iv := ciphertext[:aes.BlockSize]
	body := make([]byte, len(ciphertext)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(body, ciphertext[aes.BlockSize:])

	unpadded, err := pkcs7Unpad(body, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return unpadded, nil
}

// decryptAESGCM expects the nonce prepended to the ciphertext.
func decryptAESGCM(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrDecrypt)
	}
	plaintext, err := gcm.Open(nil, ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-pad], nil
}

// parseRSAPrivateKey handles both PKCS#8 and PKCS#1 PEM encodings.
func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}
