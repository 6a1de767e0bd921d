package grammar

// DefaultRuleset returns the built-in rule corpus, used when no rule file
// is configured. Rule files loaded from disk replace it wholesale.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version: "builtin-1",
		Rules: []Rule{
			{
				ID:       "open_app_with_file",
				Intent:   "open_app_with_file",
				Priority: 12,
				Pattern:  `(?:open|launch|start) {app} with {file}`,
				Slots:    []Slot{{Name: "app", Type: SlotApp}, {Name: "file", Type: SlotFile}},
				Examples: []string{"open vscode with main.go"},
				Synonyms: map[string][]string{"intent": {"open", "launch", "start"}},
			},
			{
				ID:       "shutdown",
				Intent:   "shutdown",
				Priority: 12,
				Pattern:  `(?:shut ?down|power off|turn off)(?: the)?(?: computer| pc| system| machine)?`,
				Examples: []string{"shutdown", "shut down the computer", "power off"},
				Synonyms: map[string][]string{"intent": {"shutdown", "power", "off"}},
			},
			{
				ID:       "restart",
				Intent:   "restart",
				Priority: 12,
				Pattern:  `(?:restart|reboot)(?: the)?(?: computer| pc| system| machine)?`,
				Examples: []string{"restart", "reboot the system"},
				Synonyms: map[string][]string{"intent": {"restart", "reboot"}},
			},
			{
				ID:       "open_url",
				Intent:   "open_url",
				Priority: 11,
				Pattern:  `(?:open|go to|visit) {url}`,
				Slots:    []Slot{{Name: "url", Type: SlotURL}},
				Examples: []string{"open github.com", "go to https://go.dev"},
				Synonyms: map[string][]string{"intent": {"open", "visit", "browse"}},
			},
			{
				ID:       "mute",
				Intent:   "mute",
				Priority: 10,
				Pattern:  `mute(?: the)?(?: sound| volume| audio)?`,
				Examples: []string{"mute", "mute the sound"},
				Synonyms: map[string][]string{"intent": {"mute", "silence", "quiet"}},
			},
			{
				ID:       "unmute",
				Intent:   "unmute",
				Priority: 10,
				Pattern:  `unmute(?: the)?(?: sound| volume| audio)?`,
				Examples: []string{"unmute"},
				Synonyms: map[string][]string{"intent": {"unmute"}},
			},
			{
				ID:       "set_volume",
				Intent:   "set_volume",
				Priority: 10,
				Pattern:  `(?:set |change )?(?:the )?volume to {level}`,
				Slots:    []Slot{{Name: "level", Type: SlotPercentage}},
				Examples: []string{"set volume to 50%", "volume to 30"},
				Synonyms: map[string][]string{"intent": {"volume", "loudness"}},
			},
			{
				ID:       "launch_app",
				Intent:   "launch_app",
				Priority: 10,
				Pattern:  `(?:open|launch|start|run) {app}`,
				Slots:    []Slot{{Name: "app", Type: SlotApp}},
				Examples: []string{"open chrome", "launch spotify"},
				Synonyms: map[string][]string{"intent": {"open", "launch", "start", "run"}},
			},
			{
				ID:       "close_app",
				Intent:   "close_app",
				Priority: 10,
				Pattern:  `(?:close|quit|exit|kill) {app}`,
				Slots:    []Slot{{Name: "app", Type: SlotApp}},
				Examples: []string{"close chrome", "quit spotify"},
				Synonyms: map[string][]string{"intent": {"close", "quit", "exit"}},
			},
			{
				ID:       "find_file",
				Intent:   "find_file",
				Priority: 9,
				Pattern:  `(?:find|locate)(?: the)?(?: file)? {file}`,
				Slots:    []Slot{{Name: "file", Type: SlotFile}},
				Examples: []string{"find file report.pdf", "locate notes.txt"},
				Synonyms: map[string][]string{"intent": {"find", "locate", "where"}},
			},
			{
				ID:       "play_music",
				Intent:   "play_music",
				Priority: 9,
				Pattern:  `play(?: some)? music`,
				Examples: []string{"play music", "play some music"},
				Synonyms: map[string][]string{"intent": {"play", "music", "song"}},
			},
			{
				ID:       "media_pause",
				Intent:   "media_pause",
				Priority: 8,
				Pattern:  `(?:pause|stop)(?: the)?(?: music| playback| media| song)?`,
				Examples: []string{"pause", "stop the music"},
				Synonyms: map[string][]string{"intent": {"pause", "stop"}},
			},
			{
				ID:       "media_next",
				Intent:   "media_next",
				Priority: 8,
				Pattern:  `(?:next|skip)(?: this)?(?: track| song)?`,
				Examples: []string{"next song", "skip"},
				Synonyms: map[string][]string{"intent": {"next", "skip"}},
			},
			{
				ID:       "maximize_window",
				Intent:   "maximize_window",
				Priority: 8,
				Pattern:  `maximize(?: the)?(?: current| active)? window`,
				Examples: []string{"maximize the window"},
				Synonyms: map[string][]string{"intent": {"maximize", "fullscreen"}},
			},
			{
				ID:       "minimize_window",
				Intent:   "minimize_window",
				Priority: 8,
				Pattern:  `minimize(?: the)?(?: current| active)? window`,
				Examples: []string{"minimize the window"},
				Synonyms: map[string][]string{"intent": {"minimize", "hide"}},
			},
			{
				ID:       "copy_clipboard",
				Intent:   "copy_clipboard",
				Priority: 7,
				Pattern:  `copy {text} to(?: the)? clipboard`,
				Slots:    []Slot{{Name: "text", Type: SlotFreeText}},
				Examples: []string{"copy hello world to clipboard"},
				Synonyms: map[string][]string{"intent": {"copy", "clipboard"}},
			},
			{
				ID:       "paste_clipboard",
				Intent:   "paste_clipboard",
				Priority: 7,
				Pattern:  `paste(?: from(?: the)? clipboard)?`,
				Examples: []string{"paste", "paste from clipboard"},
				Synonyms: map[string][]string{"intent": {"paste"}},
			},
			{
				ID:       "play_media",
				Intent:   "play_media",
				Priority: 5,
				Pattern:  `play {query}`,
				Slots:    []Slot{{Name: "query", Type: SlotQuery}},
				Examples: []string{"play jazz playlist"},
				Synonyms: map[string][]string{"intent": {"play", "listen"}},
			},
			{
				ID:       "web_search",
				Intent:   "web_search",
				Priority: 4,
				Pattern:  `(?:search|google|look up)(?: for)? {query}`,
				Slots:    []Slot{{Name: "query", Type: SlotQuery}},
				Examples: []string{"search for weather in berlin"},
				Synonyms: map[string][]string{"intent": {"search", "google", "lookup"}},
			},
		},
	}
}
