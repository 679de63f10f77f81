package player

// Data is the serializable representation of a player's state. Serializers
// map it onto their own on-disk layout.
type Data struct {
	UUID      string
	Username  string
	Position  Position
	Stance    float64
	GameMode  uint8
	Inventory [36]Slot
	Armor     [4]Slot
	HeldSlot  int16
}

// Data extracts a consistent snapshot for saving.
func (p *Player) Data() Data {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Data{
		UUID:      p.UUID,
		Username:  p.Username,
		Position:  p.pos,
		Stance:    p.stance,
		GameMode:  p.gameMode,
		Inventory: p.inventory,
		Armor:     p.armor,
		HeldSlot:  p.heldSlot,
	}
}

// Apply restores persisted state. Identity fields are kept as they are.
func (p *Player) Apply(d Data) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = d.Position
	p.stance = d.Stance
	p.gameMode = d.GameMode
	p.inventory = d.Inventory
	p.armor = d.Armor
	p.heldSlot = d.HeldSlot
}
