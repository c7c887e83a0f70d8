package game

// Autopilot steers toward the channel center a little ahead of the player,
// sidesteps the nearest threat in its lane and always fires. Headless hosts
// use it to produce demo runs.
func Autopilot(snap *GameSnapshot) Intent {
	p := snap.Player
	in := Intent{Firing: true}

	const lookahead = 80.0
	target := p.X
	best := -1.0
	for _, s := range snap.River {
		d := s.Y - (p.Y + lookahead)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best, target = d, s.Center
		}
	}

	// Nearest enemy or bullet ahead within two widths of the lane.
	threat, threatDY := 0.0, -1.0
	consider := func(x, y, r float64) {
		dy := y - p.Y
		if dy < 0 || dy > 140 {
			return
		}
		if dx := x - p.X; dx*dx > (2*(p.Radius+r))*(2*(p.Radius+r)) {
			return
		}
		if threatDY < 0 || dy < threatDY {
			threat, threatDY = x, dy
		}
	}
	for _, e := range snap.Enemies {
		consider(e.X, e.Y, e.Radius)
	}
	for _, b := range snap.EnemyBullets {
		consider(b.X, b.Y, b.Radius)
	}
	if threatDY >= 0 {
		if threat >= p.X {
			target = p.X - 40
		} else {
			target = p.X + 40
		}
	}

	in.MoveX = (target - p.X) / 30
	return in.Sanitized()
}
