package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewRand 返回对局使用的随机源，seed 为 0 时从 crypto/rand 取种子
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		var b [8]byte
		if _, err := crand.Read(b[:]); err != nil {
			panic("Failed to read random seed: " + err.Error())
		}
		seed = binary.LittleEndian.Uint64(b[:])
	}

	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Assign 为玩家分配角色：主持人先确定性分配，其余角色随机洗牌，剩余的人成为平民
func Assign(
	players []*Player,
	roleCounts map[string]int,
	rng *rand.Rand,
	gamemasterID string,
) (map[string]*RoleDefinition, error) {
	assigned := make(map[string]*RoleDefinition, len(players))

	pool := make([]*Player, 0, len(players))
	for _, p := range players {
		if _, dup := assigned[p.ID]; dup {
			return nil, configErr("players", "duplicate player id %q", p.ID)
		}

		if gamemasterID != "" && p.ID == gamemasterID {
			assigned[p.ID] = mustRole(ROLE_GAMEMASTER)
			continue
		}

		// 占位，防止重复 ID
		assigned[p.ID] = nil
		pool = append(pool, p)
	}

	if gamemasterID != "" {
		if rd := assigned[gamemasterID]; rd == nil {
			return nil, configErr("gamemaster", "initiator %q is not in the roster", gamemasterID)
		}
	}

	// 按注册表顺序展开角色，保证同一种子下结果可复现
	deck := make([]*RoleDefinition, 0, len(pool))
	requested := 0
	for role, n := range roleCounts {
		if n < 0 {
			return nil, configErr(role, "count must not be negative, got %d", n)
		}

		rd, err := lookupRole(role)
		if err != nil {
			return nil, err
		}

		if rd.Name == ROLE_GAMEMASTER && n > 0 {
			return nil, configErr(role, "the gamemaster cannot be drawn at random")
		}

		requested += n
	}

	if requested > len(pool) {
		return nil, fmt.Errorf(
			"%w: %d roles requested for %d players",
			ErrInsufficientPlayers, requested, len(pool),
		)
	}

	for _, rd := range registry.ordered {
		if rd.Name == ROLE_CITIZEN || rd.Name == ROLE_GAMEMASTER {
			continue
		}

		for i := 0; i < roleCounts[rd.Name]; i++ {
			deck = append(deck, rd)
		}
	}

	citizen := mustRole(ROLE_CITIZEN)
	for len(deck) < len(pool) {
		deck = append(deck, citizen)
	}

	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	for i, p := range pool {
		assigned[p.ID] = deck[i]
	}

	return assigned, nil
}
