package game

// Observer receives simulation changes for broadcast. Every method is
// called from the owning room's goroutine; implementations must not
// block.
type Observer interface {
	GameStart()
	GameStop()
	RoundNew()
	RoundEnd(winner *Avatar)
	End(winner *Avatar)
	Clear()
	Borderless(on bool)

	Position(a *Avatar)
	Angle(a *Avatar)
	Die(a *Avatar, killer *Body)
	Property(a *Avatar, property string, value any)
	Score(a *Avatar)
	RoundScore(a *Avatar)

	StackChange(a *Avatar, method string, b *Bonus)
	BonusPop(b *Bonus)
	BonusClear(b *Bonus)
}

// NopObserver discards every notification. Embed it to implement only
// part of Observer.
type NopObserver struct{}

func (NopObserver) GameStart()                          {}
func (NopObserver) GameStop()                           {}
func (NopObserver) RoundNew()                           {}
func (NopObserver) RoundEnd(*Avatar)                    {}
func (NopObserver) End(*Avatar)                         {}
func (NopObserver) Clear()                              {}
func (NopObserver) Borderless(bool)                     {}
func (NopObserver) Position(*Avatar)                    {}
func (NopObserver) Angle(*Avatar)                       {}
func (NopObserver) Die(*Avatar, *Body)                  {}
func (NopObserver) Property(*Avatar, string, any)       {}
func (NopObserver) Score(*Avatar)                       {}
func (NopObserver) RoundScore(*Avatar)                  {}
func (NopObserver) StackChange(*Avatar, string, *Bonus) {}
func (NopObserver) BonusPop(*Bonus)                     {}
func (NopObserver) BonusClear(*Bonus)                   {}
