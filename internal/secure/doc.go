// Package secure keeps session tokens encrypted while they sit in memory.
//
// It wraps memguard: the sealed value is encrypted with XSalsa20Poly1305 and
// only decrypted into an mlocked, guard-paged buffer for the duration of a
// single use.
//
//	buf := secure.NewSecureString(token)
//	defer buf.Destroy()
//
//	plain, err := buf.Reveal()
//	if err != nil {
//	    return err
//	}
//
// On Linux, memory locking depends on RLIMIT_MEMLOCK. When locking is not
// possible memguard degrades to ordinary allocations.
//
// This does not protect against an attacker with access to the running
// process, or against hardware attacks.
package secure
