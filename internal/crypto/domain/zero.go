package domain

// Zero overwrites each buffer with zeros. Derived keys, master secrets and decrypted
// payloads pass through here once they are no longer needed.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
