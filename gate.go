package users

// Guard is one layer of the access gate: it inspects a resolved user and
// returns a rich error when the request must be denied.
type Guard func(*User) error

// GuardResolved requires that identity resolution produced a user at all.
func GuardResolved(u *User) error {
	if u == nil {
		return ErrUnableToFindSession
	}
	return nil
}

// GuardActive requires the account's is_active flag.
func GuardActive(u *User) error {
	if err := GuardResolved(u); err != nil {
		return err
	}
	if !u.Active {
		return ErrInactiveAccount
	}
	return nil
}

// GuardSuperuser requires administrative privilege.
func GuardSuperuser(u *User) error {
	if !u.IsSuperuser() {
		return ErrNotEnoughPrivileges
	}
	return nil
}

// RunGuards applies guards in order and stops at the first denial. The order
// is significant: activeness is checked before privilege so a deactivated
// admin is turned away before its role is ever considered.
func RunGuards(u *User, guards ...Guard) error {
	for _, guard := range guards {
		if guard == nil {
			continue
		}
		if err := guard(u); err != nil {
			return err
		}
	}
	return nil
}

// GateActive is the guard chain for endpoints any signed-in account may use.
func GateActive() []Guard {
	return []Guard{GuardResolved, GuardActive}
}

// GateSuperuser is the guard chain for administrative endpoints.
func GateSuperuser() []Guard {
	return []Guard{GuardResolved, GuardActive, GuardSuperuser}
}
