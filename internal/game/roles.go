package game

import "math/rand"

// shuffleIds is a Fisher-Yates shuffle over player ids using the room's
// seedable source.
func shuffleIds(rng *rand.Rand, ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// PickReplacement chooses a replacement holder for a vacant special role:
// a uniform pick among the alive roster, excluding whichever id already
// holds the other special role. Returns "" when nobody is eligible.
func PickReplacement(rng *rand.Rand, aliveIds []string, otherRoleId string) string {
	eligible := make([]string, 0, len(aliveIds))
	for _, id := range aliveIds {
		if id != otherRoleId {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return ""
	}
	return eligible[rng.Intn(len(eligible))]
}

// applyRoles rewrites every player's role field from the current special
// role ids.
func (s *RoomState) applyRoles() {
	for id, p := range s.Players {
		switch id {
		case s.MafiaId:
			p.Role = RoleMafia
		case s.GuardianId:
			p.Role = RoleGuardian
		default:
			p.Role = RoleVillager
		}
	}
}
