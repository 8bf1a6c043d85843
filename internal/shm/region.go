package shm

import "errors"

// MappedRegion is one process's attachment to a shared object: the local
// mapping of the shared pages plus the local view of the in-region lock.
// Closing a region never affects other attachments, except that the owner's
// Close also destroys the underlying named object.
type MappedRegion struct {
	platformHandle

	mem  []byte // full mapping, header included
	data []byte // caller-visible data section
	name string
	root string
	kind LockKind
	lk   sharedLock
}

// Name returns the resolved identifier of the underlying object.
func (r *MappedRegion) Name() string { return r.name }

// Kind returns the lock kind the creator chose for this object.
func (r *MappedRegion) Kind() LockKind { return r.kind }

// Data returns the data section, excluding any lock header.
func (r *MappedRegion) Data() []byte { return r.data }

// Size returns the data section length in bytes.
func (r *MappedRegion) Size() int { return len(r.data) }

// LockWrite blocks until the exclusive side of the in-region lock is held.
func (r *MappedRegion) LockWrite() error {
	if r.lk == nil {
		return errors.New("shm: region has no lock")
	}
	return r.lk.lockWrite()
}

// UnlockWrite releases the exclusive side of the in-region lock.
func (r *MappedRegion) UnlockWrite() {
	if r.lk != nil {
		r.lk.unlockWrite()
	}
}

// LockRead blocks until the shared side of the in-region lock is held.
// Under LockMutex this is the exclusive lock.
func (r *MappedRegion) LockRead() error {
	if r.lk == nil {
		return errors.New("shm: region has no lock")
	}
	return r.lk.lockRead()
}

// UnlockRead releases the shared side of the in-region lock.
func (r *MappedRegion) UnlockRead() {
	if r.lk != nil {
		r.lk.unlockRead()
	}
}

// Close detaches the mapping. When owner is true the underlying named object
// is destroyed as well; other processes keep their attachments until they
// close them, but no new Open can resolve the identifier afterwards.
func (r *MappedRegion) Close(owner bool) error {
	if r.mem == nil {
		return nil
	}
	err := osUnmap(r)
	r.mem = nil
	r.data = nil
	r.lk = nil
	if owner {
		if derr := osDestroy(r); derr != nil {
			err = errors.Join(err, derr)
		}
	}
	return err
}
