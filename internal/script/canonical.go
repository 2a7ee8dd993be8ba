package script

func at(offset int, text string) Instruction {
	return Instruction{OffsetSeconds: offset, Text: text}
}

func phase(name string, duration int, instructions ...Instruction) Phase {
	return Phase{Name: name, DurationSeconds: duration, Instructions: instructions}
}

var attStandard = Raw{
	ID:                   "att-standard",
	Name:                 "Attention Training",
	TotalDurationSeconds: 900,
	Phases: []Phase{
		phase("Introduction", 30,
			at(0, "Settle into a comfortable position and keep your eyes open, resting on a single point in front of you."),
			at(15, "You will hear several sounds. Your task is simply to follow the instructions about where to place your attention."),
		),
		phase("Selective Attention", 180,
			at(0, "Focus on the sound of the voice. Give it your full attention and let other sounds stay in the background."),
			at(45, "Now focus on the tapping sound. Only the tapping, no other sound matters."),
			at(90, "Focus on the sound to your left. Keep your attention there."),
			at(135, "Now focus on the sound to your right, far in the distance."),
		),
		phase("Rapid Attention Switching", 240,
			at(0, "Now switch your attention quickly between the sounds as they are named."),
			at(30, "The voice. The tapping. The sound to the left."),
			at(60, "The sound to the right. The voice. The tapping."),
			at(90, "The sound to the left. The voice. The sound to the right."),
			at(120, "Keep switching. The tapping. The voice."),
			at(160, "The sound to the right. The sound to the left. The tapping."),
			at(200, "The voice. The sound to the left. The sound to the right."),
		),
		phase("Divided Attention", 240,
			at(0, "Now expand your attention to take in all of the sounds at the same time."),
			at(60, "Try to hear every sound at once, as broadly and deeply as you can."),
			at(120, "Count the sounds you can hear simultaneously, without choosing one over another."),
			at(180, "Keep your attention spread across all sounds together."),
		),
		phase("Open Attention", 180,
			at(0, "Let your attention rest openly on whatever you can hear, without directing it."),
			at(90, "Notice that you can move your attention flexibly, wherever you choose."),
		),
		phase("Closing", 30,
			at(0, "This is the end of the exercise. Let your attention return to the room."),
			at(20, "When you are ready, carry on with your day."),
		),
	},
}

var attShort = Raw{
	ID:                   "att-short",
	Name:                 "Attention Training (Short)",
	TotalDurationSeconds: 300,
	Phases: []Phase{
		phase("Introduction", 15,
			at(0, "Settle in and rest your eyes on a single point in front of you."),
		),
		phase("Selective Attention", 75,
			at(0, "Focus on the sound of the voice."),
			at(25, "Now focus on the tapping sound."),
			at(50, "Now focus on a sound far in the distance."),
		),
		phase("Rapid Attention Switching", 90,
			at(0, "Switch your attention quickly between the sounds as they are named."),
			at(30, "The voice. The tapping. The distant sound."),
			at(60, "The tapping. The distant sound. The voice."),
		),
		phase("Divided Attention", 75,
			at(0, "Expand your attention to take in all of the sounds at the same time."),
			at(40, "Hear every sound at once, as broadly as you can."),
		),
		phase("Open Attention", 30,
			at(0, "Let your attention rest openly on whatever you can hear."),
		),
		phase("Closing", 15,
			at(0, "This is the end of the exercise. Let your attention return to the room."),
		),
	},
}

var attEmergency = Raw{
	ID:                   "att-emergency",
	Name:                 "Attention Training (Emergency)",
	TotalDurationSeconds: 120,
	Phases: []Phase{
		phase("Grounding", 10,
			at(0, "Pause. Rest your eyes on one point and notice the sounds around you."),
		),
		phase("Selective Attention", 40,
			at(0, "Pick one sound and give it all of your attention."),
			at(20, "Now pick a different sound and stay with it."),
		),
		phase("Attention Switching", 40,
			at(0, "Move your attention from sound to sound, quickly."),
			at(20, "Keep switching, one sound, then the next."),
		),
		phase("Divided Attention", 20,
			at(0, "Now hear all of the sounds together."),
		),
		phase("Closing", 10,
			at(0, "Well done. Return your attention to what you were doing."),
		),
	},
}

var dmStandard = Raw{
	ID:                   "dm-standard",
	Name:                 "Detached Mindfulness",
	TotalDurationSeconds: 600,
	Phases: []Phase{
		phase("Introduction", 30,
			at(0, "In this exercise you will practise noticing thoughts without engaging with them."),
		),
		phase("Noticing Thoughts", 150,
			at(0, "Let your mind wander and notice whatever thoughts arrive."),
			at(50, "When a thought appears, simply note that it is there. Do not analyse it."),
			at(100, "Notice the thought, and let it be, without pushing it away."),
		),
		phase("Tiger Task", 120,
			at(0, "Imagine a tiger. Do not try to control the image, just watch what it does."),
			at(40, "Notice that the tiger may move or change on its own. You are only observing."),
			at(80, "Let the image come and go as it likes."),
		),
		phase("Clouds Metaphor", 180,
			at(0, "Picture your thoughts as clouds passing across the sky."),
			at(60, "You do not need to change the clouds or hold on to them. Let them drift by."),
			at(120, "If you find yourself following a thought, gently return to watching from a distance."),
		),
		phase("Passive Observation", 90,
			at(0, "Now let any thought come, and watch it as a detached observer."),
			at(45, "Notice the difference between having a thought and engaging with it."),
		),
		phase("Closing", 30,
			at(0, "This is the end of the exercise. You can use this stance whenever a worry appears."),
		),
	},
}

// Canonical returns the scripts compiled into the binary.
func Canonical() []*Script {
	return []*Script{
		MustLoad(attStandard),
		MustLoad(attShort),
		MustLoad(attEmergency),
		MustLoad(dmStandard),
	}
}
