package catfile

import (
	"bytes"
)

const (
	gpgSignaturePrefix       = "gpgsig"
	gpgSignaturePrefixSha256 = "gpgsig-sha256"

	pgpSignatureBegin = "-----BEGIN PGP SIGNATURE-----"
)

// ExtractCommitSignature splits the raw bytes of a commit object into the
// detached signature and the payload the signature covers.
//
// The signature lives in a "gpgsig" (or "gpgsig-sha256") header of the
// commit; continuation lines are marked with a leading space. The payload
// is the commit with the signature header removed, which is exactly what
// git hashes when it verifies the signature. Headers following the
// signature stay part of the payload. A commit without a signature header
// yields a nil signature and the unmodified commit as payload.
func ExtractCommitSignature(raw []byte) ([]byte, []byte) {
	var signature, payload bytes.Buffer

	inSignature := false
	inHeaders := true

	rest := raw
	for len(rest) > 0 {
		line := rest
		if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
			line, rest = rest[:idx+1], rest[idx+1:]
		} else {
			rest = nil
		}

		if inHeaders {
			if len(bytes.TrimRight(line, "\n")) == 0 {
				inHeaders = false
				inSignature = false
			} else {
				switch {
				case bytes.HasPrefix(line, []byte(gpgSignaturePrefixSha256+" ")):
					inSignature = true
					signature.Write(line[len(gpgSignaturePrefixSha256)+1:])
					continue
				case bytes.HasPrefix(line, []byte(gpgSignaturePrefix+" ")):
					inSignature = true
					signature.Write(line[len(gpgSignaturePrefix)+1:])
					continue
				case inSignature && line[0] == ' ':
					signature.Write(line[1:])
					continue
				default:
					inSignature = false
				}
			}
		}

		payload.Write(line)
	}

	if signature.Len() == 0 {
		return nil, payload.Bytes()
	}
	return signature.Bytes(), payload.Bytes()
}

// ExtractTagSignature splits the raw bytes of an annotated tag object into
// the detached signature and the payload the signature covers.
//
// Signed tags carry the armored signature block appended to the tag
// message; everything before the block is the signed payload. An unsigned
// tag yields a nil signature and the unmodified tag as payload.
func ExtractTagSignature(raw []byte) ([]byte, []byte) {
	idx := bytes.Index(raw, []byte(pgpSignatureBegin))
	if idx < 0 {
		return nil, raw
	}
	return raw[idx:], raw[:idx]
}
