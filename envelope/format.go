package envelope

import (
	"github.com/awnumar/memguard"

	"github.com/jmcleod/inkseal/crypto"
	icrypto "github.com/jmcleod/inkseal/internal/crypto"
)

// layout describes how one envelope version turns a password into keys and
// which bytes its MAC covers.
type layout struct {
	version string

	// normalize applies NFKD to the password before key derivation.
	normalize bool

	// split derives the encryption and MAC keys from the PBKDF2 master key.
	// Returning the same buffer twice means a single shared key.
	split func(master *memguard.LockedBuffer, salt []byte) (enc, mac *memguard.LockedBuffer, err error)

	// macInput returns the authenticated bytes for env whose binary fields
	// are salt, iv and ct.
	macInput func(env *Envelope, salt, iv, ct []byte) []byte
}

var layouts = map[string]*layout{
	Version1: {
		version: Version1,
		split: func(master *memguard.LockedBuffer, _ []byte) (*memguard.LockedBuffer, *memguard.LockedBuffer, error) {
			return master, master, nil
		},
		macInput: func(env *Envelope, _, _, _ []byte) []byte {
			return icrypto.MACInputLegacy(env.Salt, env.IV, env.EncryptedContent)
		},
	},
	Version2: {
		version:   Version2,
		normalize: true,
		split: func(master *memguard.LockedBuffer, salt []byte) (*memguard.LockedBuffer, *memguard.LockedBuffer, error) {
			enc, mac, err := icrypto.DeriveSubkeys(master.Bytes(), salt)
			if err != nil {
				return nil, nil, err
			}
			return memguard.NewBufferFromBytes(enc), memguard.NewBufferFromBytes(mac), nil
		},
		macInput: func(env *Envelope, salt, iv, ct []byte) []byte {
			return icrypto.MACInput(env.EncryptionMethod, env.Version, env.Iterations, salt, iv, ct)
		},
	},
}

// keySet holds the locked key material for one operation.
type keySet struct {
	master *memguard.LockedBuffer
	enc    *memguard.LockedBuffer
	mac    *memguard.LockedBuffer
}

func (k *keySet) Destroy() {
	for _, b := range []*memguard.LockedBuffer{k.enc, k.mac, k.master} {
		if b != nil {
			b.Destroy()
		}
	}
}

func (l *layout) deriveKeys(password string, salt []byte, iterations int) (*keySet, error) {
	if l.normalize {
		password = crypto.NormalizePassword(password)
	}
	raw, err := deriveMaster(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	ks := &keySet{master: memguard.NewBufferFromBytes(raw)}
	ks.enc, ks.mac, err = l.split(ks.master, salt)
	if err != nil {
		ks.Destroy()
		return nil, err
	}
	return ks, nil
}
