package crdt

import "testing"

func TestAuthorizedOwnerAlwaysTrue(t *testing.T) {
	for _, op := range []OpType{OpGroupCreate, OpMemberInvite, OpMemberRemove, OpRoleSet, OpMsgAdd, OpMsgDelete, OpMetadataSet} {
		if !authorized(RoleOwner, op, false) {
			t.Errorf("expected Owner to be authorized for %s", op)
		}
	}
}

func TestAuthorizedReadOnlyAlwaysFalse(t *testing.T) {
	for _, op := range []OpType{OpMsgAdd, OpReactionSet, OpMemberInvite, OpMetadataSet} {
		if authorized(RoleReadOnly, op, false) {
			t.Errorf("expected ReadOnly to never be authorized for %s", op)
		}
	}
}

func TestAuthorizedMemberCanOnlyLeaveNotKick(t *testing.T) {
	if !authorized(RoleMember, OpMemberRemove, true) {
		t.Error("expected Member to be authorized to remove self (Leave)")
	}
	if authorized(RoleMember, OpMemberRemove, false) {
		t.Error("expected Member to not be authorized to remove another member (Kick)")
	}
}

func TestAuthorizedMemberCanMessage(t *testing.T) {
	if !authorized(RoleMember, OpMsgAdd, false) {
		t.Error("expected Member to be authorized to add messages")
	}
	if !authorized(RoleMember, OpReactionSet, false) {
		t.Error("expected Member to be authorized to react")
	}
}

func TestAuthorizedMemberCannotInviteOrSetMetadata(t *testing.T) {
	if authorized(RoleMember, OpMemberInvite, false) {
		t.Error("expected Member to not be authorized to invite")
	}
	if authorized(RoleMember, OpMetadataSet, false) {
		t.Error("expected Member to not be authorized to set metadata")
	}
}

func TestAuthorizedAdminCanModerate(t *testing.T) {
	for _, op := range []OpType{OpMemberInvite, OpMemberRemove, OpRoleSet, OpMsgEdit, OpMsgDelete, OpMetadataSet} {
		if !authorized(RoleAdmin, op, false) {
			t.Errorf("expected Admin to be authorized for %s", op)
		}
	}
}

func TestApplyErrorUnwrap(t *testing.T) {
	id := OpID{Lamport: 1, Nonce: 1}
	wrapped := &ApplyError{OpID: id, Reason: ErrUnauthorized}
	if wrapped.Unwrap() != ErrUnauthorized {
		t.Error("expected Unwrap to return the underlying reason")
	}
	if wrapped.Error() == "" {
		t.Error("expected a non-empty error message")
	}
}
