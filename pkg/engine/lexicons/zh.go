package lexicons

import "github.com/Sumatoshi-tech/recut/pkg/timeline"

// zhBank covers Mandarin short-drama narration. Emotion weights lean on the
// vocabulary recap-style subtitles actually use; phrase banks follow the
// register of douyin/kuaishou re-cut captions.
var zhBank = &Bank{
	lang: timeline.LangZH,

	positive: map[string]float64{
		"开心": 0.7, "高兴": 0.7, "快乐": 0.8, "幸福": 0.9, "美好": 0.7,
		"温暖": 0.6, "喜欢": 0.6, "爱": 0.8, "笑": 0.5, "成功": 0.7,
		"胜利": 0.8, "希望": 0.6, "感动": 0.7, "惊喜": 0.8, "团聚": 0.8,
		"平安": 0.6, "满意": 0.5, "骄傲": 0.6, "甜蜜": 0.8, "安心": 0.5,
		"很好": 0.5, "愉快": 0.6,
	},

	negative: map[string]float64{
		"伤心": 0.7, "难过": 0.7, "痛苦": 0.9, "悲伤": 0.8, "绝望": 1.0,
		"哭": 0.6, "死": 0.9, "失败": 0.6, "害怕": 0.7, "恐惧": 0.8,
		"愤怒": 0.8, "生气": 0.6, "讨厌": 0.5, "恨": 0.9, "孤独": 0.6,
		"背叛": 0.9, "欺骗": 0.8, "失望": 0.6, "崩溃": 0.9, "冷漠": 0.5,
	},

	intense: []string{
		"突然", "竟然", "居然", "瞬间", "彻底", "完全", "极度", "疯狂",
		"震惊", "爆发", "不可思议", "万万没想到", "天啊", "致命",
	},

	conflict: []string{
		"吵架", "争执", "冲突", "打架", "对抗", "矛盾", "争吵", "反对",
		"威胁", "报复", "敌人", "对手", "决裂", "翻脸", "质问",
	},

	resolution: []string{
		"和解", "原谅", "解决", "真相", "明白", "理解", "释怀", "团圆",
		"答案", "揭晓", "坦白", "化解", "冰释前嫌",
	},

	hooks: map[HookCategory][]Phrase{
		HookPositive: {
			{Text: "这波操作直接封神！", Intensity: 0.9},
			{Text: "看到最后你一定会笑出声！", Intensity: 0.7},
			{Text: "接下来的画面太治愈了", Intensity: 0.5},
		},
		HookNegative: {
			{Text: "这一幕让所有人心碎", Intensity: 0.9},
			{Text: "谁能想到结局竟是这样", Intensity: 0.8},
			{Text: "看完这段我沉默了", Intensity: 0.6},
		},
		HookIntense: {
			{Text: "前方高能预警！", Intensity: 0.9},
			{Text: "千万别眨眼，下一秒直接反转", Intensity: 0.8},
			{Text: "这段冲突直接拉满", Intensity: 0.7},
		},
		HookNeutral: {
			{Text: "注意看，这个细节很关键", Intensity: 0.5},
			{Text: "故事的开始毫无征兆", Intensity: 0.5},
			{Text: "事情要从这里说起", Intensity: 0.4},
		},
	},

	amplifiers: map[Level][]string{
		LevelHigh:       {"简直难以置信", "直接炸裂"},
		LevelMedium:     {"更让人意外的是", "让人没想到的是"},
		LevelContextual: {"就在这时", "下一秒"},
	},

	suspense: []string{
		"但事情远没有这么简单",
		"然而真正的转折还在后面",
		"可谁也没想到，意外来了",
	},

	climax: map[ClimaxStyle][]string{
		ClimaxDramatic:    {"这一刻，所有伏笔全部引爆", "所有矛盾在此刻彻底爆发"},
		ClimaxEmotional:   {"看到这里，眼泪再也绷不住了", "这一幕看哭了无数人"},
		ClimaxSuspenseful: {"答案马上揭晓，千万别走开", "真相只差最后一步"},
	},

	triggers: []string{
		"你觉得他做得对吗？评论区聊聊",
		"如果是你，你会怎么选？",
		"关注我，下集更精彩",
	},

	transitions: []string{
		"后来", "然后", "接着", "没过多久", "与此同时", "渐渐地", "过了一会",
	},

	reversals: []string{
		"但是", "然而", "没想到", "谁知", "突然", "反转", "竟然", "偏偏",
	},

	structure: map[string][]string{
		CueBeginning:   {"从前", "一天", "最初", "故事开始", "起初"},
		CueDevelopment: {"后来", "接着", "渐渐", "随着", "而且"},
		CueClimax:      {"终于", "关键时刻", "千钧一发", "爆发", "就在此刻"},
		CueResolution:  {"最终", "结局", "从此", "真相大白", "尘埃落定"},
	},

	transport: []string{
		"坐车", "开车", "飞机", "火车", "高铁", "赶往", "出发", "抵达", "路上", "赶到",
	},

	pronouns: []string{"他", "她", "我", "你", "他们", "她们", "我们", "自己"},

	sayVerbs: []string{"说", "问", "喊", "答", "叫", "吼", "低声道"},

	kinship: []string{
		"爸爸", "妈妈", "父亲", "母亲", "儿子", "女儿", "哥哥", "弟弟",
		"姐姐", "妹妹", "爷爷", "奶奶", "丈夫", "妻子", "叔叔", "阿姨",
	},
}
