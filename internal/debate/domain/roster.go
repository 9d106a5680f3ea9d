package domain

// Team identifies one of the four British Parliamentary benches.
type Team string

const (
	// TeamOpeningGovernment is the Opening Government bench.
	TeamOpeningGovernment Team = "OG"
	// TeamOpeningOpposition is the Opening Opposition bench.
	TeamOpeningOpposition Team = "OO"
	// TeamClosingGovernment is the Closing Government bench.
	TeamClosingGovernment Team = "CG"
	// TeamClosingOpposition is the Closing Opposition bench.
	TeamClosingOpposition Team = "CO"
)

// Teams returns the four benches in canonical order.
func Teams() []Team {
	return []Team{
		TeamOpeningGovernment,
		TeamOpeningOpposition,
		TeamClosingGovernment,
		TeamClosingOpposition,
	}
}

// Valid reports whether t is one of the four known teams.
func (t Team) Valid() bool {
	switch t {
	case TeamOpeningGovernment, TeamOpeningOpposition, TeamClosingGovernment, TeamClosingOpposition:
		return true
	}
	return false
}

// Role identifies one of the eight British Parliamentary speaking roles.
type Role string

const (
	RolePrimeMinister            Role = "prime_minister"
	RoleLeaderOfOpposition       Role = "leader_of_opposition"
	RoleDeputyPrimeMinister      Role = "deputy_prime_minister"
	RoleDeputyLeaderOfOpposition Role = "deputy_leader_of_opposition"
	RoleMemberOfGovernment       Role = "member_of_government"
	RoleMemberOfOpposition       Role = "member_of_opposition"
	RoleGovernmentWhip           Role = "government_whip"
	RoleOppositionWhip           Role = "opposition_whip"
)

// RosterSlot pairs a speaking role with its bench and display label.
type RosterSlot struct {
	Role  Role
	Team  Team
	Label string
}

// CanonicalRoster returns the eight role/team slots in speaking order.
// Every session's speaker array is created from this template.
func CanonicalRoster() []RosterSlot {
	return []RosterSlot{
		{Role: RolePrimeMinister, Team: TeamOpeningGovernment, Label: "Prime Minister"},
		{Role: RoleLeaderOfOpposition, Team: TeamOpeningOpposition, Label: "Leader of Opposition"},
		{Role: RoleDeputyPrimeMinister, Team: TeamOpeningGovernment, Label: "Deputy Prime Minister"},
		{Role: RoleDeputyLeaderOfOpposition, Team: TeamOpeningOpposition, Label: "Deputy Leader of Opposition"},
		{Role: RoleMemberOfGovernment, Team: TeamClosingGovernment, Label: "Member of Government"},
		{Role: RoleMemberOfOpposition, Team: TeamClosingOpposition, Label: "Member of Opposition"},
		{Role: RoleGovernmentWhip, Team: TeamClosingGovernment, Label: "Government Whip"},
		{Role: RoleOppositionWhip, Team: TeamClosingOpposition, Label: "Opposition Whip"},
	}
}
