package roster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile_OrderAndAvatars(t *testing.T) {
	got := Reconcile([]string{"Alice", "Bob"})
	require.Equal(t, []Participant{
		{Name: "Alice", AvatarURL: "https://avatars.dicebear.com/api/adventurer-neutral/Alice.svg"},
		{Name: "Bob", AvatarURL: "https://avatars.dicebear.com/api/adventurer-neutral/Bob.svg"},
	}, got)
}

func TestReconcile_KeepsDuplicates(t *testing.T) {
	got := Reconcile([]string{"Alice", "Alice"})
	require.Len(t, got, 2)
	require.Equal(t, got[0], got[1])
}

func TestReconcile_EmptyAndNil(t *testing.T) {
	require.Empty(t, Reconcile(nil))
	require.Empty(t, Reconcile([]string{}))
}

func TestAvatarURL_EscapesName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Bob", "https://avatars.dicebear.com/api/adventurer-neutral/Bob.svg"},
		{"space", "Bob Smith", "https://avatars.dicebear.com/api/adventurer-neutral/Bob%20Smith.svg"},
		{"slash", "a/b", "https://avatars.dicebear.com/api/adventurer-neutral/a%2Fb.svg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, AvatarURL(tc.in))
		})
	}
}
