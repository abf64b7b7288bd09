package subtitles

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single cue",
			in:   "00:00:01.000 --> 00:00:02.000\nHello   world.\n",
			want: "Hello world.",
		},
		{
			name: "webvtt with settings and markup",
			in: "WEBVTT\nKind: captions\nLanguage: en\n\n" +
				"00:00:01.000 --> 00:00:02.000 align:start position:0%\n" +
				"Hello <i>world</i>\n\n" +
				"00:00:02.000 --> 00:00:04.000\n" +
				"Hello <i>world</i>\n[Music]\n",
			want: "Hello world",
		},
		{
			name: "srt with indices and comma timestamps",
			in: "1\n00:00:01,000 --> 00:00:02,500\nHello there.\n\n" +
				"2\n00:00:02,500 --> 00:00:04,000\nGeneral Kenobi!\n",
			want: "Hello there. General Kenobi!",
		},
		{
			name: "timedtext xml",
			in: "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
				"<transcript><text start=\"1.2\" dur=\"2.0\">so &#39;today&#39; we cover</text>" +
				"<text start=\"3.2\" dur=\"2.0\">the basics</text></transcript>\n",
			want: "so 'today' we cover the basics",
		},
		{
			name: "double escaped markup",
			in:   "0:00:01.000 --> 0:00:02.000\n&amp;lt;i&amp;gt;quiet&amp;lt;/i&amp;gt; voice\n",
			want: "quiet voice",
		},
		{
			name: "glued sentence boundaries",
			in:   "00:00:01.000 --> 00:00:02.000\nthat is all.Next we look at errors\n",
			want: "that is all. Next we look at errors",
		},
		{
			name: "space before punctuation",
			in:   "00:00:01.000 --> 00:00:02.000\nwait , what ?\n",
			want: "wait, what?",
		},
		{
			name: "sound notes dropped",
			in:   "00:00:01.000 --> 00:00:02.000\n[Applause] thanks everyone (laughs)\n",
			want: "thanks everyone",
		},
		{
			name: "overlapping auto captions deduped",
			in: "00:00:01.000 --> 00:00:03.000\nnever gonna give\n" +
				"00:00:02.000 --> 00:00:04.000\nnever gonna give\n" +
				"00:00:03.000 --> 00:00:05.000\nyou up\n",
			want: "never gonna give you up",
		},
		{
			name: "already clean prose unchanged",
			in:   "Plain prose stays as it is.",
			want: "Plain prose stays as it is.",
		},
		{
			name: "bare number without timing is prose",
			in:   "42",
			want: "42",
		},
		{
			name: "numeric line kept when no cue follows",
			in:   "the answer is\n42\nof course",
			want: "the answer is 42 of course",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "markup only",
			in:   "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<c.colorE5E5E5></c>\n[Music]\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"00:00:01.000 --> 00:00:02.000\nHello   world.\n",
		"WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<b>bold</b> claim [sic]\n",
		"&amp;amp;lt;div&amp;amp;gt; deeply escaped",
		"sentence one.Two glued , with spacing issues !",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
